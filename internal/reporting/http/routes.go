// Package reporthttp exposes the financial reports over HTTP.
package reporthttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/Diony-dev/Veloce/internal/platform/httpx"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

// exportsPerMinute bounds CSV exports per caller.
const exportsPerMinute = 10

// MountRoutes registers report endpoints onto an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry later")
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/kpis", h.handleKPIs)
		rr.Get("/comparative", h.handleComparative)
		rr.Get("/categories", h.handleCategories)
		rr.Get("/top-clients", h.handleTopClients)
		rr.Get("/receivables", h.handleReceivables)
		rr.Get("/cash-reconciliation", h.handleCashReconciliation)
		rr.Get("/fiscal", h.handleFiscal)
		rr.Get("/sales", h.handleSales)
		rr.Get("/expenses", h.handleExpenses)
		rr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/{name}/export.csv", h.handleExport)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := tenant.ActorFromContext(r.Context()); ok {
		if user := strings.TrimSpace(actor.UserID); user != "" {
			return "user:" + actor.OrganizationID.String() + ":" + user, nil
		}
		return "org:" + actor.OrganizationID.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
