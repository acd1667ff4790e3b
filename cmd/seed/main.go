// Package main seeds a store with demo products, movements and credit sales
// and prints a development token for it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"retailhub/internal/app"
	"retailhub/internal/core/apperror"
	appctx "retailhub/internal/core/context"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/auth"
	"retailhub/internal/domain/credits"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/domain/products"
	"retailhub/pkg/config"
	"retailhub/pkg/logger"
)

const (
	seedUser      = "seed"
	seedWarehouse = "MAIN"
)

type productSeed struct {
	id, sku, name, cost string
	stock              int64
}

var demoProducts = []productSeed{
	{"P-1001", "SKU-1001", "Espresso beans 1kg", "18.40", 120},
	{"P-1002", "SKU-1002", "Paper cups 12oz (100)", "6.90", 400},
	{"P-1003", "SKU-1003", "Oat milk 1l", "2.15", 60},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	storeID := os.Getenv("SEED_STORE_ID")
	if storeID == "" {
		storeID = "STORE-001"
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer a.Close()

	if err := seedProducts(ctx, a, storeID, log); err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}
	if err := seedCredits(ctx, a, storeID, log); err != nil {
		log.Fatalw("failed to seed credit sales", "error", err)
	}

	token, expires, err := a.JWT.GenerateAccessToken(&appctx.UserContext{
		UserID: "dev-admin",
		Email:  "admin@retailhub.local",
		Permissions: []string{
			auth.PermRecordMovements, auth.PermRepairInventory,
			auth.PermRecordCredits, auth.PermRepairCredits,
			auth.PermManageProducts,
		},
		StoreIDs: []string{storeID},
	})
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	log.Infow("seeding completed successfully", "store_id", storeID, "token_expires_at", expires.Format(time.RFC3339))
	fmt.Println(token)
}

func seedProducts(ctx context.Context, a *app.App, storeID string, log *logger.Logger) error {
	for _, ps := range demoProducts {
		_, _, err := a.Products.Create(ctx, products.CreateRequest{
			ID:           ps.id,
			StoreID:      storeID,
			SKU:          ps.sku,
			Name:         ps.name,
			UnitCost:     types.MustMoney(ps.cost),
			InitialStock: types.NewQuantity(ps.stock),
			WarehouseID:  seedWarehouse,
			UserID:       seedUser,
		})
		if alreadySeeded(err) {
			log.Infow("product already exists", "product_id", ps.id)
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", ps.id, err)
		}

		// A sale and a restock so every chain has some history.
		for _, req := range []inventory.MovementRequest{
			{MovementType: entity.MovementSale, Quantity: types.NewQuantity(-ps.stock / 10), ReferenceType: entity.RefSaleTransaction, ReferenceID: "SEED-SALE-" + ps.id},
			{MovementType: entity.MovementPurchase, Quantity: types.NewQuantity(ps.stock / 4), ReferenceType: entity.RefPurchaseOrder, ReferenceID: "SEED-PO-" + ps.id},
		} {
			req.ProductID = ps.id
			req.WarehouseID = seedWarehouse
			req.StoreID = storeID
			req.UserID = seedUser
			req.UnitCost = types.MustMoney(ps.cost)
			req.IdempotencyKey = req.ReferenceID

			m, err := a.Recorder.RecordMovement(ctx, req)
			if err != nil {
				return fmt.Errorf("record %s for %s: %w", req.MovementType, ps.id, err)
			}
			if _, err := a.Products.SyncCachedStock(ctx, m); err != nil {
				return fmt.Errorf("sync cached stock of %s: %w", ps.id, err)
			}
		}
		log.Infow("product seeded", "product_id", ps.id, "sku", ps.sku)
	}
	return nil
}

func seedCredits(ctx context.Context, a *app.App, storeID string, log *logger.Logger) error {
	sales := []struct {
		sale     credits.Sale
		payments []string
	}{
		{credits.Sale{SaleID: "CS-0001", StoreID: storeID, CustomerID: "CUST-01", Total: types.MustMoney("250.00")}, []string{"100.00"}},
		{credits.Sale{SaleID: "CS-0002", StoreID: storeID, CustomerID: "CUST-02", Total: types.MustMoney("80.00")}, []string{"50.00", "30.00"}},
		{credits.Sale{SaleID: "CS-0003", StoreID: storeID, CustomerID: "CUST-01", Total: types.MustMoney("42.50")}, nil},
	}

	for _, s := range sales {
		if _, err := a.Credits.RecordSale(ctx, s.sale); err != nil {
			if alreadySeeded(err) {
				log.Infow("credit sale already exists", "sale_id", s.sale.SaleID)
				continue
			}
			return fmt.Errorf("record sale %s: %w", s.sale.SaleID, err)
		}
		for _, amount := range s.payments {
			if _, err := a.Credits.RecordPayment(ctx, credits.Payment{
				SaleID:  s.sale.SaleID,
				StoreID: storeID,
				Amount:  types.MustMoney(amount),
			}); err != nil {
				return fmt.Errorf("record payment on %s: %w", s.sale.SaleID, err)
			}
		}
		log.Infow("credit sale seeded", "sale_id", s.sale.SaleID)
	}
	return nil
}

func alreadySeeded(err error) bool {
	return apperror.HasCode(err, apperror.CodeDuplicate) || apperror.HasCode(err, apperror.CodeConflict)
}
