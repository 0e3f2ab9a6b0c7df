package ha

import (
	"context"
	"log/slog"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
)

// Task is a background loop that must run on one replica at a time, such
// as audit retention. Run must return when ctx is cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// LeaderElector runs registered tasks on the elected replica only. With
// leader election disabled, or without a Kubernetes client, the replica
// considers itself the sole leader.
type LeaderElector struct {
	config   *HAConfig
	client   kubernetes.Interface
	identity string
	logger   *slog.Logger

	mu       sync.RWMutex
	isLeader bool
	tasks    []Task
}

// NewLeaderElector creates a LeaderElector. The identity must be unique per
// replica.
func NewLeaderElector(cfg *HAConfig, client kubernetes.Interface, identity string, logger *slog.Logger) *LeaderElector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultHAConfig()
	}
	return &LeaderElector{
		config:   cfg,
		client:   client,
		identity: identity,
		logger:   logger,
	}
}

// Register adds a task. Tasks registered after Run starts are ignored.
func (le *LeaderElector) Register(name string, run func(ctx context.Context)) {
	le.mu.Lock()
	defer le.mu.Unlock()
	le.tasks = append(le.tasks, Task{Name: name, Run: run})
}

// IsLeader reports whether this replica currently runs the tasks.
func (le *LeaderElector) IsLeader() bool {
	le.mu.RLock()
	defer le.mu.RUnlock()
	return le.isLeader
}

func (le *LeaderElector) setLeader(v bool) {
	le.mu.Lock()
	le.isLeader = v
	le.mu.Unlock()
}

// Run blocks until ctx is cancelled. A replica that loses the lease stops
// its tasks and rejoins the election.
func (le *LeaderElector) Run(ctx context.Context) {
	if !le.config.LeaderElectionEnabled || le.client == nil {
		le.logger.Info("leader election disabled, running tasks as sole leader", "tasks", le.taskNames())
		le.lead(ctx)
		return
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      le.config.LeaseName,
			Namespace: le.config.LeaseNamespace,
		},
		Client:     le.client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{Identity: le.identity},
	}
	le.logger.Info("starting leader election",
		"identity", le.identity,
		"lease", le.config.LeaseName,
		"namespace", le.config.LeaseNamespace,
	)

	for ctx.Err() == nil {
		leaderelection.RunOrDie(ctx, leaderelection.LeaderElectionConfig{
			Lock:            lock,
			LeaseDuration:   le.config.LeaseDuration,
			RenewDeadline:   le.config.RenewDeadline,
			RetryPeriod:     le.config.RetryPeriod,
			ReleaseOnCancel: true,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: le.lead,
				OnStoppedLeading: func() {
					le.setLeader(false)
					le.logger.Info("lost leadership", "identity", le.identity)
				},
				OnNewLeader: func(identity string) {
					if identity != le.identity {
						le.logger.Info("new leader elected", "leader", identity)
					}
				},
			},
		})
		select {
		case <-ctx.Done():
		case <-time.After(le.config.RetryPeriod):
		}
	}
}

// lead runs every task until ctx is cancelled and they have all returned.
func (le *LeaderElector) lead(ctx context.Context) {
	le.setLeader(true)
	defer le.setLeader(false)

	le.mu.RLock()
	tasks := append([]Task(nil), le.tasks...)
	le.mu.RUnlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			le.logger.Info("leader task started", "task", t.Name)
			t.Run(ctx)
			le.logger.Info("leader task stopped", "task", t.Name)
		}(t)
	}
	<-ctx.Done()
	wg.Wait()
}

func (le *LeaderElector) taskNames() []string {
	le.mu.RLock()
	defer le.mu.RUnlock()
	names := make([]string, 0, len(le.tasks))
	for _, t := range le.tasks {
		names = append(names, t.Name)
	}
	return names
}
