package assignment

import (
	"extension-portal/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleAssignment struct{}

func (m *ModuleAssignment) GetName() string {
	return "Assignment"
}

func (m *ModuleAssignment) Init() {
	log = logger.New("Assignment")
}
