package enroll_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/enroll"
	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/store/memory"
	"github.com/xraph/enroll/types"
	"github.com/xraph/enroll/user"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from package doc
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine. A real deployment wires a gateway via
		// enroll.WithGateway(stripe.New(...)).
		e := enroll.New(store,
			enroll.WithLogger(slog.Default()),
			enroll.WithCheckoutURLs("https://app.example.com/loading", "https://app.example.com/courses"),
		)

		// Start the engine
		ctx := context.Background()
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		// Users normally arrive through identity sync webhooks; seed
		// them directly here.
		educator := &user.User{
			Entity: types.NewEntity(),
			ID:     id.NewUserID(),
			Email:  "educator@example.com",
			Name:   "Example Educator",
		}
		student := &user.User{
			Entity: types.NewEntity(),
			ID:     id.NewUserID(),
			Email:  "student@example.com",
			Name:   "Example Student",
		}
		if err := store.CreateUser(ctx, educator); err != nil {
			t.Fatal(err)
		}
		if err := store.CreateUser(ctx, student); err != nil {
			t.Fatal(err)
		}

		// Create and publish a course
		c := &course.Course{
			Title:           "Go in Practice",
			EducatorID:      educator.ID,
			ListPrice:       types.USD(4900), // $49.00
			DiscountPercent: 10,
		}
		if err := e.CreateCourse(ctx, c); err != nil {
			t.Fatal(err)
		}
		if err := e.SetCoursePublished(ctx, educator.ID, c.ID, true); err != nil {
			t.Fatal(err)
		}

		// Initiate a purchase. The price is frozen here: $49.00 minus
		// 10% is $44.10. With no gateway configured the pending ledger
		// entry still exists but no checkout session opens.
		p, session, err := e.InitiatePurchase(ctx, student.ID, c.ID)
		if !errors.Is(err, enroll.ErrGatewayUnavailable) {
			t.Fatalf("InitiatePurchase without gateway: err = %v", err)
		}
		if session != nil {
			t.Fatal("expected no checkout session without a gateway")
		}
		if !p.Amount.Equal(types.USD(4410)) {
			t.Fatalf("frozen amount = %s, want $44.10", p.Amount)
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(4900)   // $49.00
		_ = types.EUR(9900)   // 99.00 EUR
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)                  // $3.00
		_ = m2.Subtract(m1)             // $1.00
		_ = m2.ApplyDiscountPercent(50) // $1.00, rounded half-up

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
