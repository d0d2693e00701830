package main

import (
	"extension-portal/config"
	"extension-portal/internal/global/backend"
	"extension-portal/internal/global/logger"
	"extension-portal/internal/global/session"
	"extension-portal/internal/review"
	"extension-portal/tools"
	"fmt"
	"time"
)

// app 一次命令执行所需的依赖
type app struct {
	cfg     *config.Config
	session *session.Session
	client  *backend.Client
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.baseURL != "" {
		cfg.Backend.BaseURL = flags.baseURL
	}
	path := flags.sessionPath
	if path == "" {
		path = cfg.Backend.SessionFile
	}
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	sess, err := session.New(session.NewFileStore(path))
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Backend.TimeoutSec) * time.Second
	return &app{
		cfg:     cfg,
		session: sess,
		client:  backend.New(cfg.Backend.BaseURL, timeout, sess, logger.Discard()),
	}, nil
}

func (a *app) coordinator() *review.Coordinator {
	return review.NewCoordinator(a.client, logger.Discard())
}

func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return fmt.Errorf("not logged in, run `portalctl login` first")
	}
	return nil
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, s := range args {
		id, err := tools.ParseID(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
