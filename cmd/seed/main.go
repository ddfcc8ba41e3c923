package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/orderflow-ai/internal/config"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/catalog"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/customers"
	"github.com/bryanwahyu/orderflow-ai/internal/infra/db/postgres"
)

// Seeds one tenant with sample customers and catalog products for local
// development. Skips if the tenant already has products.

var seedCustomers = []customers.Customer{
	{CompanyName: "Acme Manufacturing", ContactName: "John Mitchell", Email: "orders@acme-mfg.com", Phone: "+1 (415) 555-0142", PaymentTerms: "Net-30", ShippingPreference: "Standard", Notes: "VIP customer, high volume buyer"},
	{CompanyName: "BuildCo", ContactName: "Sarah Chen", Email: "procurement@buildco.io", Phone: "+1 (415) 555-0198", PaymentTerms: "Net-60", ShippingPreference: "Express", Notes: "Construction company, bulk steel orders"},
	{CompanyName: "TechParts Inc", ContactName: "Alex Rivera", Email: "hello@techparts.co", Phone: "+1 (650) 555-0177", PaymentTerms: "Net-30", ShippingPreference: "Standard"},
	{CompanyName: "Global Widgets", ContactName: "Maria Thompson", Email: "orders@globalwidgets.com", Phone: "+1 (212) 555-0134", PaymentTerms: "Net-30", ShippingPreference: "Standard", Notes: "Retail distribution, regular reorders"},
	{CompanyName: "MegaCorp", ContactName: "David Park", Email: "supply@megacorp.com", Phone: "+1 (310) 555-0156", PaymentTerms: "Net-45", ShippingPreference: "Express", Notes: "Enterprise client, R&D procurement"},
}

var seedProducts = []catalog.Product{
	{SKU: "WIDGET-001", Name: "Blue Widget", Price: 15.50},
	{SKU: "WIDGET-002", Name: "Red Widget", Price: 16.00},
	{SKU: "WIDGET-003", Name: "Green Widget", Price: 17.67},
	{SKU: "GADGET-PRO", Name: "Gadget Pro", Price: 23.50},
	{SKU: "STL-100", Name: "Steel Beam A", Price: 45.00},
	{SKU: "STL-200", Name: "Steel Beam B", Price: 52.00},
	{SKU: "BLT-050", Name: "Bolt Pack (100)", Price: 8.50},
	{SKU: "NUT-050", Name: "Nut Pack (100)", Price: 6.75},
	{SKU: "PCB-200", Name: "Circuit Board v2", Price: 52.00},
	{SKU: "SNS-100", Name: "Sensor Module", Price: 60.00},
}

func main() {
	tenant := flag.String("tenant", "demo", "tenant id to seed")
	flag.Parse()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("postgres connect error: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	catalogRepo := postgres.NewCatalogRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	existing, err := catalogRepo.List(ctx, *tenant)
	if err != nil {
		log.Fatalf("catalog check error: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("tenant %s already seeded, skipping", *tenant)
		return
	}

	now := time.Now()
	for _, c := range seedCustomers {
		c.ID = customers.CustomerID(uuid.NewString())
		c.TenantID = *tenant
		c.CreatedAt = now
		if err := customerRepo.Create(ctx, &c); err != nil {
			log.Fatalf("seed customer %s: %v", c.CompanyName, err)
		}
	}
	for _, p := range seedProducts {
		p.ID = uuid.NewString()
		p.TenantID = *tenant
		p.CreatedAt = now
		if err := catalogRepo.Create(ctx, &p); err != nil {
			log.Fatalf("seed product %s: %v", p.SKU, err)
		}
	}
	log.Printf("seeded %d customers and %d products for tenant %s",
		len(seedCustomers), len(seedProducts), *tenant)
}
