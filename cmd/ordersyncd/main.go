// ordersyncd runs the order state synchronization engine as a daemon: it
// authenticates a staff actor, keeps the local order collection in sync with
// the remote order service, and exposes Prometheus metrics.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ordersync/internal/bootstrap"
	"ordersync/internal/core"
	"ordersync/internal/mock"

	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mockBackend := flag.Bool("mock", false, "run against an in-memory mock backend with seeded demo orders")
	actorID := flag.String("actor", "", "actor id to authenticate at startup")
	actorRole := flag.String("role", "staff", "role of the startup actor")
	flag.Parse()

	if err := run(*configPath, *mockBackend, *actorID, *actorRole); err != nil {
		fmt.Fprintf(os.Stderr, "ordersyncd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, useMock bool, actorID, actorRole string) error {
	opts := []bootstrap.Option{
		bootstrap.WithConfirmer(core.ConfirmerFunc(promptConfirm)),
	}

	var backend *mock.MockTransport
	if useMock {
		backend = mock.NewMockTransport()
		seedDemoOrders(backend)
		opts = append(opts, bootstrap.WithTransport(backend))
	}

	app, err := bootstrap.NewApp(configPath, opts...)
	if err != nil {
		return err
	}

	if actorID != "" {
		app.Session.Login(&core.Actor{ID: actorID, Name: actorID, Role: actorRole})
	}

	runners := []bootstrap.Runner{}
	if useMock {
		// Walk seeded orders through the pipeline so the chime path is
		// observable without a real backend.
		runners = append(runners, bootstrap.RunnerFunc(func(ctx context.Context) error {
			return driveDemo(ctx, backend, app)
		}))
	}

	return app.Run(runners...)
}

func promptConfirm(ctx context.Context, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func seedDemoOrders(backend *mock.MockTransport) {
	table := 4
	backend.Seed(&core.Order{
		ID:     "17240000010001",
		Status: "received",
		Type:   core.OrderTypeDineIn,
		Items: []core.OrderItem{
			{ProductID: "p-1", ProductName: "Margherita", UnitPrice: decimal.NewFromFloat(9.50), Quantity: 2},
			{ProductID: "p-7", ProductName: "Lemonade", UnitPrice: decimal.NewFromFloat(3.00), Quantity: 2},
		},
		Total:       decimal.NewFromFloat(25.00),
		Customer:    core.Customer{Name: "Walk-in", Mobile: "0000"},
		TableNumber: &table,
		CreatedAt:   time.Now().Add(-5 * time.Minute),
	})
	backend.Seed(&core.Order{
		ID:     "17240000020001",
		Status: "preparing",
		Type:   core.OrderTypeTakeaway,
		Items: []core.OrderItem{
			{ProductID: "p-3", ProductName: "Calzone", UnitPrice: decimal.NewFromFloat(11.00), Quantity: 1},
		},
		Total:     decimal.NewFromFloat(11.00),
		Customer:  core.Customer{Name: "Dana", Mobile: "5550101"},
		CreatedAt: time.Now().Add(-12 * time.Minute),
	})
}

// driveDemo mutates the mock backend every few poll cycles so the running
// daemon shows refreshes, status transitions, and chimes.
func driveDemo(ctx context.Context, backend *mock.MockTransport, app *bootstrap.App) error {
	interval := time.Duration(app.Cfg.Sync.PollIntervalSeconds) * time.Second * 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	steps := []struct{ id, status string }{
		{"17240000010001", "preparing"},
		{"17240000010001", "ready"},
		{"17240000020001", "ready"},
		{"17240000010001", "completed"},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			backend.SetStatus(step.id, step.status)
			app.Logger.Info("Demo backend advanced order",
				"order_id", step.id, "status", step.status)
		}
	}
	return nil
}
