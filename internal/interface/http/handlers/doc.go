// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Webhook handling for the commerce order.completed integration
//   - Reusable middleware components
//   - API key authentication middleware (bcrypt-hashed keys)
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("certificate_service", handlers.NewCertificateServiceCheck(certClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Webhook Handling
//
// The OrderWebhookHandler interface turns commerce webhook deliveries into
// domain events:
//
//	webhook := handlers.NewOrderEventWebhook(dispatcher)
//	err := webhook.HandleOrderCompleted(ctx, payload)
//
// Idempotency is not this layer's concern: redelivered events are deduped by
// the event handler behind the dispatcher.
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// API Key authentication (keys are configured as bcrypt hashes)
//	auth := handlers.NewAPIKeyAuth("X-API-Key", []string{"$2a$10$..."})
//	protected := auth.Middleware(myHandler)
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    auth.Middleware,
//	)
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
package handlers
