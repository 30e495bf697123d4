package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// DateLayout is the wire format of dashboard dates.
const DateLayout = "2006-01-02"

// SellerProductsQuery observes the products of a seller.
func (c *Client) SellerProductsQuery(userID int64) *query.Query[[]Product, json.RawMessage] {
	return query.NewQuery[[]Product, json.RawMessage](c.queries,
		c.read(query.Key{KeySellerProducts, userID}, idPath("/user", userID, "products"), nil))
}

// SellerProducts reads the products of a seller.
func (c *Client) SellerProducts(ctx context.Context, userID int64) ([]Product, error) {
	ps, _, err := query.Fetch[[]Product, json.RawMessage](ctx, c.queries,
		c.read(query.Key{KeySellerProducts, userID}, idPath("/user", userID, "products"), nil))
	return ps, err
}

// UserStatusVars are the variables of SetUserStatusMutation.
type UserStatusVars struct {
	UserID int64
	Status string
}

// SetUserStatusMutation patches /user/{id}/status. On success the stored user
// takes the new status and every cached read is invalidated.
func (c *Client) SetUserStatusMutation() *query.Mutation[UserStatusVars, json.RawMessage] {
	return writer(c, query.MutationOptions[UserStatusVars, json.RawMessage]{
		Method:   http.MethodPatch,
		PathFunc: func(v UserStatusVars) string { return idPath("/user", v.UserID, "status") },
		Body:     func(v UserStatusVars) any { return map[string]string{"status": v.Status} },
		Callbacks: query.Callbacks[UserStatusVars, json.RawMessage]{
			OnSuccess: func(_ json.RawMessage, v UserStatusVars) {
				c.storeStatus(v)
			},
		},
	})
}

// SetUserStatus activates or deactivates a seller account.
func (c *Client) SetUserStatus(ctx context.Context, userID int64, status string) error {
	if status != UserActive && status != UserInactive {
		return fmt.Errorf("storefront: unknown user status %q", status)
	}
	_, err := c.SetUserStatusMutation().MutateAsync(ctx, UserStatusVars{UserID: userID, Status: status})
	return err
}

func (c *Client) storeStatus(v UserStatusVars) {
	s := c.gw.Session()
	u, err := s.User()
	if err != nil || u.ID != v.UserID {
		return
	}
	u.Status = v.Status
	if err := s.SetCredentials(s.Token(), *u); err != nil {
		c.logger.Warn("store user status", zap.Error(err))
	}
}

// DashboardKey is the cache key of the dashboard from start. A nil start is
// the server's default window.
func DashboardKey(start *time.Time) query.Key {
	if start == nil {
		return query.Key{KeyDashboard, nil}
	}
	return query.Key{KeyDashboard, start.Format(DateLayout)}
}

func dashboardParams(start *time.Time) map[string]any {
	if start == nil {
		return nil
	}
	return map[string]any{"startDate": start.Format(DateLayout)}
}

// DashboardQuery observes the seller dashboard.
func (c *Client) DashboardQuery(start *time.Time) *query.Query[Dashboard, json.RawMessage] {
	return query.NewQuery[Dashboard, json.RawMessage](c.queries,
		c.read(DashboardKey(start), "/dashboard", dashboardParams(start)))
}

// GetDashboard reads the seller dashboard.
func (c *Client) GetDashboard(ctx context.Context, start *time.Time) (Dashboard, error) {
	d, _, err := query.Fetch[Dashboard, json.RawMessage](ctx, c.queries,
		c.read(DashboardKey(start), "/dashboard", dashboardParams(start)))
	return d, err
}
