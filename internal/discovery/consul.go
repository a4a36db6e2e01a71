package discovery

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type Registration struct {
	ServiceID      string
	ServiceName    string
	ServiceAddress string
	Port           string
}

type ServiceRegistry struct {
	client *api.Client
	reg    Registration
	log    *zap.Logger
}

func NewServiceRegistry(consulAddress string, reg Registration, log *zap.Logger) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = consulAddress

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	if reg.ServiceID == "" {
		reg.ServiceID = reg.ServiceName
	}
	return &ServiceRegistry{client: client, reg: reg, log: log}, nil
}

func (sr *ServiceRegistry) httpServiceID() string {
	return sr.reg.ServiceID + "-http"
}

func (sr *ServiceRegistry) registration() *api.AgentServiceRegistration {
	port, _ := strconv.Atoi(sr.reg.Port)
	return &api.AgentServiceRegistration{
		ID:      sr.httpServiceID(),
		Name:    sr.reg.ServiceName,
		Port:    port,
		Address: sr.reg.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", sr.reg.ServiceAddress, sr.reg.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"assessment", "http"},
		Meta: map[string]string{
			"protocol": "http",
		},
	}
}

func (sr *ServiceRegistry) Register() error {
	if err := sr.client.Agent().ServiceRegister(sr.registration()); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %w", err)
	}
	sr.log.Info("Successfully registered HTTP service with Consul", zap.String("service_id", sr.httpServiceID()))
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if err := sr.client.Agent().ServiceDeregister(sr.httpServiceID()); err != nil {
		return fmt.Errorf("failed to deregister HTTP service: %w", err)
	}
	return nil
}
