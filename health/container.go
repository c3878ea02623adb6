package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/jonwraymond/healthcheck/task"
)

// ContainerInspector is the part of the Docker client used by
// ContainerCheck.
type ContainerInspector interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// ContainerCheckConfig configures a Docker container check.
type ContainerCheckConfig struct {
	Name string

	// Container is the container name or ID.
	Container string

	// Timeout bounds one inspect call. Default: 5s.
	Timeout time.Duration

	// Client is used for inspection. Default: a client configured from the
	// DOCKER_* environment, created on first run.
	Client ContainerInspector

	Order    *int
	Critical bool
}

// ContainerCheck returns a check that succeeds when the container is running
// and, if it defines a health check, reports healthy.
func ContainerCheck(config ContainerCheckConfig) task.Definition {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var (
		once      sync.Once
		inspector = config.Client
		clientErr error
	)

	return task.Definition{
		Name:     config.Name,
		Order:    config.Order,
		Critical: config.Critical,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			once.Do(func() {
				if inspector != nil {
					return
				}
				cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
				if err != nil {
					clientErr = fmt.Errorf("failed to create docker client: %w", err)
					return
				}
				inspector = cli
			})
			if clientErr != nil {
				return nil, clientErr
			}

			inspectCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			inspect, err := inspector.ContainerInspect(inspectCtx, config.Container)
			if err != nil {
				return nil, fmt.Errorf("failed to inspect container %s: %w", config.Container, err)
			}
			return containerState(config.Container, inspect)
		},
	}
}

func containerState(name string, inspect container.InspectResponse) (map[string]any, error) {
	if inspect.ContainerJSONBase == nil || inspect.State == nil {
		return nil, fmt.Errorf("container %s has no state", name)
	}
	if !inspect.State.Running {
		return nil, fmt.Errorf("container %s is %s", name, inspect.State.Status)
	}

	data := map[string]any{"status": string(inspect.State.Status)}
	if h := inspect.State.Health; h != nil {
		data["health"] = string(h.Status)
		if h.Status != container.Healthy {
			return nil, fmt.Errorf("container %s is %s", name, h.Status)
		}
	}
	return data, nil
}
