package program

import (
	"extension-portal/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleProgram struct{}

func (m *ModuleProgram) GetName() string {
	return "Program"
}

func (m *ModuleProgram) Init() {
	log = logger.New("Program")
}
