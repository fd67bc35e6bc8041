package handlers

import (
	"wallet-api/internal/domain/interest"
	"wallet-api/internal/domain/transfer"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/infrastructure/messaging"
)

// HandlerDependencies is an interface that defines the dependencies needed by handlers
// This interface breaks the circular dependency between handlers and components packages
type HandlerDependencies interface {
	GetDatabase() database.Repository
	GetTransferEngine() *transfer.Engine
	GetInterestEngine() *interest.Engine
	GetEventPublisher() messaging.EventPublisher
}
