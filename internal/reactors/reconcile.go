package reactors

import (
	"context"
	"log/slog"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/models"
)

// provisioningGrace keeps the reconciler off products whose create reactor
// is plausibly still running.
const provisioningGrace = 2 * time.Minute

// PendingLister finds products whose provisioning saga stalled.
type PendingLister interface {
	ListPendingProvisioning(ctx context.Context, olderThan time.Time) ([]models.Product, error)
}

// ProvisioningReconciler re-runs the recurring-price saga for products
// stuck in pending, making the two-step product/price provisioning safe
// to interrupt. Scheduled from main.
type ProvisioningReconciler struct {
	products PendingLister
	reactor  *ProductReactor
}

func NewProvisioningReconciler(products PendingLister, reactor *ProductReactor) *ProvisioningReconciler {
	return &ProvisioningReconciler{products: products, reactor: reactor}
}

func (r *ProvisioningReconciler) Run(ctx context.Context) {
	pending, err := r.products.ListPendingProvisioning(ctx, time.Now().UTC().Add(-provisioningGrace))
	if err != nil {
		slog.Error("provisioning reconcile query failed", "error", err)
		return
	}

	for i := range pending {
		p := pending[i]
		if err := r.reactor.Provision(ctx, &p); err != nil {
			slog.Error("provisioning reconcile failed",
				"collection", models.CollectionProducts,
				"doc_id", p.ID.String(),
				"action", "provision",
				"error", err.Error())
			continue
		}
		slog.Info("reconciled product provisioning", "doc_id", p.ID.String())
	}
}
