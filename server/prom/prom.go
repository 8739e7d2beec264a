// Package prom exposes the process metrics over HTTP for long batch runs.
package prom

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const _promCloseDuration = 3 * time.Second

type Instance struct {
	exportAddr string
	exportPath string
	logger     *zap.Logger
	srv        *http.Server
}

type InstanceOption struct {
	Logger *zap.Logger
}

func New(exportAddr string, exportPath string, option InstanceOption) *Instance {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	if exportPath == "" {
		exportPath = "/metrics"
	}

	sm := http.NewServeMux()
	sm.Handle(exportPath, promhttp.Handler())

	return &Instance{
		exportAddr: exportAddr,
		exportPath: exportPath,
		logger:     option.Logger,
		srv: &http.Server{
			Addr:    exportAddr,
			Handler: sm,
		},
	}
}

func (instance *Instance) Start() {
	go func() {
		instance.logger.Info("metrics endpoint up",
			zap.String("addr", instance.exportAddr),
			zap.String("path", instance.exportPath),
		)
		err := instance.srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			instance.logger.Error("metrics endpoint down", zap.Error(err))
		}
	}()
}

func (instance *Instance) CloseWithContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, _promCloseDuration)
	defer cancel()
	return instance.srv.Shutdown(ctx)
}
