package account

import (
	"extension-portal/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleAccount struct{}

func (m *ModuleAccount) GetName() string {
	return "Account"
}

func (m *ModuleAccount) Init() {
	log = logger.New("Account")
}
