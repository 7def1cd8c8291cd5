package router

import (
	"github.com/backoffice/installments/internal/interfaces/http/handler"
	"github.com/backoffice/installments/internal/interfaces/http/middleware"
)

// ObligationRoutes builds the obligation and payment routes.
// Static segments such as /summary are matched before the :id parameter.
func ObligationRoutes(h *handler.InstallmentHandler) *Resource {
	return &Resource{
		Name:   "obligations",
		Prefix: "/obligations",
		Routes: []Route{
			Get("", h.List),
			Post("", h.Create),
			Get("/summary", h.Summary),
			Get("/:id", h.GetByID),
		},
		Nested: []*Resource{{
			Name:   "payments",
			Prefix: "/:id/payments",
			Routes: []Route{
				Get("", h.ListPayments),
				Post("", middleware.IdempotencyKey(), h.RegisterPayment),
				Post("/validate", h.ValidatePayment),
				Delete("/:paymentId", h.DeletePayment),
			},
		}},
	}
}

// DocumentRoutes builds the per-document installment routes
func DocumentRoutes(h *handler.InstallmentHandler) *Resource {
	return &Resource{
		Name:   "documents",
		Prefix: "/documents",
		Routes: []Route{Get("/:documentId/obligations", h.ListByDocument)},
	}
}

// SystemRoutes builds the operational routes under /system
func SystemRoutes(h *handler.SystemHandler) *Resource {
	return &Resource{
		Name:   "system",
		Prefix: "/system",
		Routes: []Route{
			Get("/info", h.GetSystemInfo),
			Post("/sweep", h.TriggerSweep),
		},
	}
}
