package reviewer

import (
	"extension-portal/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleReviewer struct{}

func (m *ModuleReviewer) GetName() string {
	return "Reviewer"
}

func (m *ModuleReviewer) Init() {
	log = logger.New("Reviewer")
}
