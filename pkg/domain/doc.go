// Package domain contains the core entities of the typosquatting monitor:
// domain registrations, delta reports and email subscriptions. These types
// are free of infrastructure concerns so they can be shared by the
// repository, the workers and the HTTP layer.
package domain
