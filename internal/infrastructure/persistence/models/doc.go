// Package models holds the GORM table mappings for obligations and payments.
// Domain types carry no ORM tags; each model converts to and from its domain
// counterpart with ToDomain and FromDomain.
//
// The outbox table is mapped directly by shared.OutboxEntry.
package models
