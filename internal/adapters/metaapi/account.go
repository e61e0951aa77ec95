package metaapi

import (
	"context"
	"time"

	"traderDashboard/internal/domain"
)

// Account is a MetaApi data-source handle bound to one MetaTrader account.
// It implements ports.AccountDataSource.
type Account struct {
	client *Client
	id     string
}

// ID returns the MetaApi account ID the handle is bound to.
func (a *Account) ID() string {
	return a.id
}

// GetAccountInformation retrieves balance and equity of the account.
func (a *Account) GetAccountInformation(ctx context.Context) (*domain.AccountSnapshot, error) {
	op := "GetAccountInformation"
	var info accountInformation
	err := a.client.get(ctx, op, "/users/current/accounts/{accountId}/account-information",
		map[string]string{"accountId": a.id}, &info)
	if err != nil {
		return nil, err
	}
	return info.toDomain(), nil
}

// GetHistoryOrders retrieves historical orders placed in [from, to].
func (a *Account) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	op := "GetHistoryOrders"
	var resp historyOrdersResponse
	err := a.client.get(ctx, op, "/users/current/accounts/{accountId}/history-orders/time/{startTime}/{endTime}",
		map[string]string{"accountId": a.id, "startTime": formatTime(from), "endTime": formatTime(to)}, &resp)
	if err != nil {
		return nil, err
	}
	a.warnIfSynchronizing(ctx, op, resp.Synchronizing)

	orders := make([]domain.Order, 0, len(resp.HistoryOrders))
	for _, o := range resp.HistoryOrders {
		orders = append(orders, o.toDomain())
	}
	a.client.logger.Debug(ctx, op+" successful", map[string]interface{}{"accountId": a.id, "count": len(orders)})
	return orders, nil
}

// GetDealsByPosition retrieves all deals of the position positionID.
func (a *Account) GetDealsByPosition(ctx context.Context, positionID string) ([]domain.Deal, error) {
	op := "GetDealsByPosition"
	var resp historyDealsResponse
	err := a.client.get(ctx, op, "/users/current/accounts/{accountId}/history-deals/position/{positionId}",
		map[string]string{"accountId": a.id, "positionId": positionID}, &resp)
	if err != nil {
		return nil, err
	}
	a.warnIfSynchronizing(ctx, op, resp.Synchronizing)
	return resp.toDomain(), nil
}

// GetDealsByTimeRange retrieves ledger deals executed in [from, to].
func (a *Account) GetDealsByTimeRange(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	op := "GetDealsByTimeRange"
	var resp historyDealsResponse
	err := a.client.get(ctx, op, "/users/current/accounts/{accountId}/history-deals/time/{startTime}/{endTime}",
		map[string]string{"accountId": a.id, "startTime": formatTime(from), "endTime": formatTime(to)}, &resp)
	if err != nil {
		return nil, err
	}
	a.warnIfSynchronizing(ctx, op, resp.Synchronizing)
	deals := resp.toDomain()
	a.client.logger.Debug(ctx, op+" successful", map[string]interface{}{"accountId": a.id, "count": len(deals)})
	return deals, nil
}

// warnIfSynchronizing logs when MetaApi answered before the terminal finished
// synchronizing history; the data may be incomplete.
func (a *Account) warnIfSynchronizing(ctx context.Context, op string, synchronizing bool) {
	if synchronizing {
		a.client.logger.Warn(ctx, op+": history is still synchronizing, result may be incomplete", map[string]interface{}{"accountId": a.id})
	}
}
