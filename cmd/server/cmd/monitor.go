package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/phayes/freeport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"

	"github.com/Brownie44l1/rop-api/internal/config"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
)

// initMonitor starts the profiler and the tracer when enabled and returns their teardown.
func initMonitor(profiler bool, telemetry config.TelemetryConfig) func() {
	var fc = make(chan func(), 5)

	if profiler {
		vm := startProfiler()
		fc <- func() {
			vm.Stop()
			logger.Info("stop profiler")
		}
	}

	if telemetry.Jaeger != "" {
		tp, err := initJaegerTracer(telemetry.Jaeger, telemetry.ServiceName)
		if err != nil {
			logger.Warnf("init jaeger tracer error: %v", err)
		} else {
			fc <- func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Errorf("shutdown jaeger tracer error: %v", err)
				}
			}
		}
	}

	return func() {
		logger.Infof("do %d monitor finalizer", len(fc))
		for {
			select {
			case f := <-fc:
				f()
			default:
				return
			}
		}
	}
}

// startProfiler serves pprof and statsview on a free local port.
func startProfiler() *statsview.ViewManager {
	port, err := freeport.GetFreePort()
	if err != nil {
		logger.Warnf("find free port for profiler error: %v", err)
	}

	debugAddr := fmt.Sprintf("localhost:%d", port)
	viewer.SetConfiguration(viewer.WithAddr(debugAddr))

	logger.With("pprof", fmt.Sprintf("http://%s/debug/pprof", debugAddr),
		"statsview", fmt.Sprintf("http://%s/debug/statsview", debugAddr)).
		Infof("enable pprof at %s", debugAddr)

	vm := statsview.New()
	go func() {
		if err := vm.Start(); err != nil {
			logger.Warnf("serve pprof error: %v", err)
		}
	}()

	return vm
}

// initJaegerTracer creates a new trace provider instance and registers it as global trace provider.
func initJaegerTracer(addr, serviceName string) (*sdktrace.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(addr)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

// setupQuitSignalHandler calls handler once on the first SIGINT or SIGTERM.
func setupQuitSignalHandler(handler func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		logger.Infof("receive %s signal, stopping server", sig)
		signal.Stop(signals)
		handler()
	}()
}
