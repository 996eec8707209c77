// Package enroll provides a course purchase and enrollment engine for Go applications.
//
// Enroll is designed as a library, not a service. Import it directly into your Go
// application and wire in your preferred store and payment gateway. It provides:
//
//   - A purchase ledger with a strict pending → completed | failed lifecycle
//   - Exactly-once enrollment grants under at-least-once webhook delivery
//   - Verify-first handling of untrusted gateway and identity notifications
//   - Price freezing at purchase initiation with integer minor-unit arithmetic
//   - A background sweep that resolves purchases whose notification never arrived
//   - Pluggable hooks for audit trails and metrics
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/enroll"
//	    "github.com/xraph/enroll/gateway/stripe"
//	    "github.com/xraph/enroll/store/postgres"
//	)
//
//	gw, err := stripe.New(stripe.Config{APIKey: apiKey, WebhookSecret: whSecret})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := enroll.New(store,
//	    enroll.WithGateway(gw),
//	    enroll.WithCheckoutURLs(successURL, cancelURL),
//	)
//
//	// Start the engine (runs migrations, begins background workers)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Core Concepts
//
// A purchase freezes the course's discounted price at initiation and opens a
// hosted checkout session:
//
//	p, session, err := e.InitiatePurchase(ctx, userID, courseID)
//	// redirect the buyer to session.URL
//
// The gateway reports the outcome through a webhook. The raw body is verified
// before anything is trusted, then the outcome is applied through a
// compare-and-set state machine; duplicate deliveries are no-ops and
// conflicting terminal reports are rejected:
//
//	err := e.HandleGatewayNotification(ctx, body, headers)
//
// A completed purchase grants the (user, course) enrollment exactly once.
// Enrollment unlocks full lecture access, progress tracking, and rating.
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest currency
// unit (cents for USD, pence for GBP, etc). Discounts round half-up.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	crs_01h2xcejqtf2nbrexx3vqjhp41  // Course ID
//	pur_01h2xcejqtf2nbrexx3vqjhp41  // Purchase ID
//	enr_01h455vb4pex5vsknk084sn02q  // Enrollment ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package enroll
