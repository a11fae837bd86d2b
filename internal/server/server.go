package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/Brownie44l1/rop-api/internal/config"
	"github.com/Brownie44l1/rop-api/internal/handlers"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/metrics"
	"github.com/Brownie44l1/rop-api/internal/model"
	"github.com/Brownie44l1/rop-api/internal/preprocess"
	"github.com/Brownie44l1/rop-api/internal/router"
)

type Server struct {
	// Server configuration.
	config *config.Config

	// Classifier owning the loaded model.
	classifier *model.Classifier

	// HTTP api server.
	httpServer *http.Server

	// Metrics server.
	metricsServer *http.Server
}

// New loads the model with load and prepares the servers. A model that cannot
// be loaded is returned as an error and no listener is created.
func New(cfg *config.Config, load model.Loader) (*Server, error) {
	s := &Server{config: cfg}

	// Initialize classifier.
	transform := preprocess.New(cfg.Model.ImageSize, cfg.Model.Mean, cfg.Model.Std, cfg.Model.MaxImagePixels)
	s.classifier = model.NewClassifier(&cfg.Model, transform)
	if err := s.classifier.Load(load); err != nil {
		return nil, err
	}

	// Initialize router.
	h := handlers.New(s.classifier, transform, cfg.Server.MaxUploadSizeBytes)
	s.httpServer = &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: router.Init(cfg, h),
	}

	// Initialize metrics.
	if cfg.Metrics.Enable {
		s.metricsServer = metrics.New(&cfg.Metrics)
	}

	return s, nil
}

// Serve blocks until the api server is shut down.
func (s *Server) Serve() error {
	// Started metrics server.
	if s.metricsServer != nil {
		go func() {
			logger.Infof("started metrics server at %s", s.metricsServer.Addr)
			if err := s.metricsServer.ListenAndServe(); err != nil {
				if err == http.ErrServerClosed {
					return
				}

				logger.Fatalf("metrics server closed unexpect: %s", err.Error())
			}
		}()
	}

	// Started api server.
	logger.Infof("started api server at %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if err == http.ErrServerClosed {
			return nil
		}

		return fmt.Errorf("api server closed unexpect: %w", err)
	}

	return nil
}

// Stop drains in-flight requests, then releases the model. The model is kept
// when draining did not finish, since forward passes may still be running.
func (s *Server) Stop(ctx context.Context) error {
	var result error

	drained := true
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("api server failed to stop: %s", err.Error())
		result = multierror.Append(result, err)
		drained = false
	} else {
		logger.Info("api server closed normally")
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			logger.Errorf("metrics server failed to stop: %s", err.Error())
			result = multierror.Append(result, err)
		} else {
			logger.Info("metrics server closed normally")
		}
	}

	if !drained {
		logger.Warnf("requests still in flight, model is not released")
		return result
	}

	if err := s.classifier.Close(); err != nil {
		logger.Errorf("release model failed: %s", err.Error())
		result = multierror.Append(result, err)
	} else {
		logger.Info("model released")
	}

	return result
}

// Classifier returns the classifier serving predictions.
func (s *Server) Classifier() *model.Classifier {
	return s.classifier
}

// Handler returns the api http handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
