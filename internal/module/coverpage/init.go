package coverpage

import (
	"extension-portal/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleCoverPage struct{}

func (m *ModuleCoverPage) GetName() string {
	return "CoverPage"
}

func (m *ModuleCoverPage) Init() {
	log = logger.New("CoverPage")
}
