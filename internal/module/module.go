package module

import (
	"extension-portal/internal/module/account"
	"extension-portal/internal/module/assignment"
	"extension-portal/internal/module/coverpage"
	"extension-portal/internal/module/ping"
	"extension-portal/internal/module/program"
	"extension-portal/internal/module/reviewer"
	"extension-portal/internal/module/stats"
	"extension-portal/internal/module/user"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init()
	InitRouter(r *gin.RouterGroup)
}

var Modules []Module

func registerModule(m []Module) {
	Modules = append(Modules, m...)
}

func init() {
	registerModule([]Module{
		&ping.ModulePing{},
		&user.ModuleUser{},
		&account.ModuleAccount{},
		&reviewer.ModuleReviewer{},
		&program.ModuleProgram{},
		&assignment.ModuleAssignment{},
		&coverpage.ModuleCoverPage{},
		&stats.ModuleStats{},
	})
}
