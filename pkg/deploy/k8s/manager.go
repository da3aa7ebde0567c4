package k8s

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	appslisters "k8s.io/client-go/listers/apps/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/clientcmd"

	"loanpilot/internal/model"
	"loanpilot/pkg/constants"
	"loanpilot/pkg/interfaces"
	"loanpilot/pkg/logger"
)

// Manager applies and observes the scoring app Deployment in a single
// namespace. Reads go through a shared informer cache; writes go to the
// API server directly.
type Manager struct {
	client    kubernetes.Interface
	config    *rest.Config
	namespace string

	informerFactory  informers.SharedInformerFactory
	deploymentLister appslisters.DeploymentLister
	informerStopCh   chan struct{}
	stopOnce         sync.Once

	callbacksMu      sync.RWMutex
	replicaCallbacks map[int64]interfaces.ReplicaCallback
	nextCallbackID   int64
}

// NewManager creates a K8s manager
func NewManager(namespace string) (*Manager, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		// Not in cluster, fall back to kubeconfig
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		configOverrides := &clientcmd.ConfigOverrides{}
		kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)
		config, err = kubeConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes config: %v", err)
		}
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %v", err)
	}

	return newManagerWithClient(client, config, namespace), nil
}

// newManagerWithClient wires informers around an existing clientset.
// Split out so tests can inject a fake clientset.
func newManagerWithClient(client kubernetes.Interface, config *rest.Config, namespace string) *Manager {
	stopCh := make(chan struct{})
	informerFactory := informers.NewSharedInformerFactoryWithOptions(
		client,
		5*time.Minute,
		informers.WithNamespace(namespace),
	)
	deploymentInformer := informerFactory.Apps().V1().Deployments()

	manager := &Manager{
		client:           client,
		config:           config,
		namespace:        namespace,
		informerFactory:  informerFactory,
		deploymentLister: deploymentInformer.Lister(),
		informerStopCh:   stopCh,
		replicaCallbacks: make(map[int64]interfaces.ReplicaCallback),
	}

	deploymentInformer.Informer().AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    manager.handleDeploymentEvent,
		UpdateFunc: manager.handleDeploymentUpdate,
		DeleteFunc: manager.handleDeploymentDelete,
	})

	logger.InfoCtx(context.Background(), "starting k8s informers for namespace: %s", namespace)
	go informerFactory.Start(stopCh)

	go func() {
		ctx := context.Background()
		ok := cache.WaitForCacheSync(stopCh, deploymentInformer.Informer().HasSynced)
		if ok {
			logger.InfoCtx(ctx, "k8s informers synced for namespace: %s", namespace)
		} else {
			logger.WarnCtx(ctx, "k8s informers failed to sync for namespace: %s, queries will use live API", namespace)
		}
	}()

	return manager
}

// Apply validates and applies a Deployment (create or update)
func (m *Manager) Apply(ctx context.Context, deployment *appsv1.Deployment) error {
	if err := ValidateDeployment(deployment); err != nil {
		return err
	}

	deployments := m.client.AppsV1().Deployments(m.namespace)
	existing, err := deployments.Get(ctx, deployment.Name, metav1.GetOptions{})
	if err != nil {
		if !errors.IsNotFound(err) {
			return fmt.Errorf("failed to get deployment: %v", err)
		}
		_, err = deployments.Create(ctx, deployment, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("failed to create deployment: %v", err)
		}
		logger.InfoCtx(ctx, "deployment created: %s", deployment.Name)
		return nil
	}

	deployment.ResourceVersion = existing.ResourceVersion
	if _, err := deployments.Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update deployment: %v", err)
	}
	logger.InfoCtx(ctx, "deployment updated: %s", deployment.Name)
	return nil
}

// Scale changes the desired replica count
func (m *Manager) Scale(ctx context.Context, name string, replicas int32) error {
	if replicas <= 0 {
		return fmt.Errorf("replicas must be positive, got %d", replicas)
	}

	deployments := m.client.AppsV1().Deployments(m.namespace)
	deployment, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment: %v", err)
	}

	deployment.Spec.Replicas = &replicas
	if _, err := deployments.Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to scale deployment: %v", err)
	}
	return nil
}

// Delete removes a Deployment. Deleting an absent deployment is not an error.
func (m *Manager) Delete(ctx context.Context, name string) error {
	err := m.client.AppsV1().Deployments(m.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		return fmt.Errorf("failed to delete deployment: %v", err)
	}
	return nil
}

// Status retrieves the live status of a Deployment. The informer cache
// is consulted first; a live API read covers the window before sync.
func (m *Manager) Status(ctx context.Context, name string) (*model.DeploymentStatus, error) {
	if m.deploymentLister != nil {
		if deployment, err := m.deploymentLister.Deployments(m.namespace).Get(name); err == nil {
			return statusFromDeployment(deployment), nil
		} else if !errors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get deployment from cache: %v", err)
		}
	}

	deployment, err := m.client.AppsV1().Deployments(m.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployment: %v", err)
	}
	return statusFromDeployment(deployment), nil
}

// Close releases underlying informers/resources
func (m *Manager) Close() {
	if m.informerStopCh == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.informerStopCh)
		m.informerStopCh = nil
	})
}

// RegisterReplicaCallback adds a new replica change listener and returns its id.
func (m *Manager) RegisterReplicaCallback(cb interfaces.ReplicaCallback) int64 {
	if cb == nil {
		return 0
	}
	id := atomic.AddInt64(&m.nextCallbackID, 1)
	m.callbacksMu.Lock()
	if m.replicaCallbacks == nil {
		m.replicaCallbacks = make(map[int64]interfaces.ReplicaCallback)
	}
	m.replicaCallbacks[id] = cb
	m.callbacksMu.Unlock()
	return id
}

// UnregisterReplicaCallback removes a previously registered listener.
func (m *Manager) UnregisterReplicaCallback(id int64) {
	if id == 0 {
		return
	}
	m.callbacksMu.Lock()
	if m.replicaCallbacks != nil {
		delete(m.replicaCallbacks, id)
	}
	m.callbacksMu.Unlock()
}

func (m *Manager) handleDeploymentEvent(obj interface{}) {
	deployment, ok := obj.(*appsv1.Deployment)
	if !ok || deployment == nil || !isManagedDeployment(deployment) {
		return
	}
	m.emitReplicaChange(buildReplicaEvent(deployment))
}

func (m *Manager) handleDeploymentUpdate(oldObj, newObj interface{}) {
	newDep, ok := newObj.(*appsv1.Deployment)
	if !ok || newDep == nil || !isManagedDeployment(newDep) {
		return
	}
	m.emitReplicaChange(buildReplicaEvent(newDep))
}

func (m *Manager) handleDeploymentDelete(obj interface{}) {
	switch v := obj.(type) {
	case *appsv1.Deployment:
		if v != nil && isManagedDeployment(v) {
			m.emitReplicaChange(deletedReplicaEvent(v.Name))
		}
	case cache.DeletedFinalStateUnknown:
		if dep, ok := v.Obj.(*appsv1.Deployment); ok && dep != nil && isManagedDeployment(dep) {
			m.emitReplicaChange(deletedReplicaEvent(dep.Name))
		}
	}
}

func (m *Manager) emitReplicaChange(event interfaces.ReplicaEvent) {
	m.callbacksMu.RLock()
	if len(m.replicaCallbacks) == 0 {
		m.callbacksMu.RUnlock()
		return
	}
	callbacks := make([]interfaces.ReplicaCallback, 0, len(m.replicaCallbacks))
	for _, cb := range m.replicaCallbacks {
		callbacks = append(callbacks, cb)
	}
	m.callbacksMu.RUnlock()

	for _, cb := range callbacks {
		// fan out asynchronously to avoid blocking the informer thread
		go cb(event)
	}
}

// GetNamespace returns the namespace this manager operates in
func (m *Manager) GetNamespace() string {
	return m.namespace
}

func isManagedDeployment(dep *appsv1.Deployment) bool {
	return dep.Labels != nil && dep.Labels[constants.LabelManagedBy] == constants.ManagedByLoanpilot
}

func getDesiredReplicas(dep *appsv1.Deployment) int32 {
	if dep.Spec.Replicas == nil {
		return 0
	}
	return *dep.Spec.Replicas
}

func buildReplicaEvent(dep *appsv1.Deployment) interfaces.ReplicaEvent {
	return interfaces.ReplicaEvent{
		Name:              dep.Name,
		DesiredReplicas:   int(getDesiredReplicas(dep)),
		ReadyReplicas:     int(dep.Status.ReadyReplicas),
		AvailableReplicas: int(dep.Status.AvailableReplicas),
		UpdatedReplicas:   int(dep.Status.UpdatedReplicas),
		Conditions:        extractConditions(dep.Status.Conditions),
	}
}

func deletedReplicaEvent(name string) interfaces.ReplicaEvent {
	return interfaces.ReplicaEvent{
		Name: name,
		Conditions: []interfaces.ReplicaCondition{
			{Type: "Deleted", Status: "True", Reason: "Deleted", Message: "Deployment deleted"},
		},
	}
}

func extractConditions(conditions []appsv1.DeploymentCondition) []interfaces.ReplicaCondition {
	if len(conditions) == 0 {
		return nil
	}
	result := make([]interfaces.ReplicaCondition, 0, len(conditions))
	for _, cond := range conditions {
		result = append(result, interfaces.ReplicaCondition{
			Type:    string(cond.Type),
			Status:  string(cond.Status),
			Reason:  cond.Reason,
			Message: cond.Message,
		})
	}
	return result
}

// statusFromDeployment condenses a Deployment's status into the replica
// counts and Available condition the release sync cares about.
func statusFromDeployment(dep *appsv1.Deployment) *model.DeploymentStatus {
	status := &model.DeploymentStatus{
		Name:        dep.Name,
		Desired:     getDesiredReplicas(dep),
		Ready:       dep.Status.ReadyReplicas,
		Available:   dep.Status.AvailableReplicas,
		Updated:     dep.Status.UpdatedReplicas,
		ObservedGen: dep.Status.ObservedGeneration,
	}
	for _, cond := range dep.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable {
			status.AvailableCondTrue = cond.Status == "True"
		}
	}
	return status
}
