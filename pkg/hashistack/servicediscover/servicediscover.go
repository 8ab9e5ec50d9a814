package servicediscover

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"endurancy-platform/pkg/config"

	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module registers the HTTP API in Consul for the lifetime of the process.
// It is a no-op when CONSUL.ADDR is empty.
var Module = fx.Module("servicediscover",
	fx.Invoke(registerConsul),
)

type ServiceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
}

type ConsulRegistry struct {
	client    *api.Client
	serviceID string
	service   *api.AgentServiceRegistration
}

func NewConsulRegistry(address, serviceName, serviceID, host string, port int) (*ConsulRegistry, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	service := &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: host,
		Port:    port,
		Tags:    []string{"http", "api"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/health/readiness", net.JoinHostPort(host, strconv.Itoa(port))),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	return &ConsulRegistry{
		client:    client,
		serviceID: serviceID,
		service:   service,
	}, nil
}

func (r *ConsulRegistry) Register(ctx context.Context) error {
	return r.client.Agent().ServiceRegister(r.service)
}

func (r *ConsulRegistry) Deregister(ctx context.Context) error {
	return r.client.Agent().ServiceDeregister(r.serviceID)
}

func registerConsul(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Consul.Addr == "" {
		return nil
	}

	host, err := os.Hostname()
	if err != nil {
		return err
	}

	port, err := strconv.Atoi(cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("consul registration needs a numeric HTTP_SERVER.ADDR: %w", err)
	}

	registry, err := NewConsulRegistry(cfg.Consul.Addr, cfg.AppName, fmt.Sprintf("%s-%s", cfg.AppName, host), host, port)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			zap.L().Info("registering service in consul", zap.String("addr", cfg.Consul.Addr), zap.String("service_id", registry.serviceID))
			return registry.Register(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return registry.Deregister(ctx)
		},
	})
	return nil
}
