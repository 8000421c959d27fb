package metrics

import (
	"context"

	"cloud.google.com/go/compute/metadata"
	"github.com/samber/lo"
)

const (
	resourceTypeGlobal       = "global"
	resourceTypeGkeContainer = "gke_container"
	resourceTypeGceInstance  = "gce_instance"
	resourceTypeGenericNode  = "generic_node"
	resourceTypeGenericTask  = "generic_task"
)

// Resource is the monitored resource flip counts are filed against.
//
// see https://cloud.google.com/monitoring/api/resources
type Resource interface {
	Type() string

	// Labels returns the resource's labels, omitting any left empty.
	Labels() map[string]string
}

type ResourceGlobal struct {
	ProjectId string
}

type ResourceGceInstance struct {
	ProjectId  string
	InstanceId string
	Zone       string
}

type ResourceGkeContainer struct {
	ProjectId     string
	ClusterName   string
	InstanceId    string
	Zone          string
	NamespaceId   string
	PodId         string
	ContainerName string
}

type ResourceGenericNode struct {
	ProjectId string
	Location  string
	Namespace string
	NodeId    string
}

type ResourceGenericTask struct {
	ProjectId string
	Location  string
	Namespace string
	Job       string
	TaskId    string
}

func (r *ResourceGlobal) Type() string {
	return resourceTypeGlobal
}

func (r *ResourceGlobal) Labels() map[string]string {
	return compactLabels(map[string]string{
		resourceLabelKeyProjectId: r.ProjectId,
	})
}

func (r *ResourceGceInstance) Type() string {
	return resourceTypeGceInstance
}

func (r *ResourceGceInstance) Labels() map[string]string {
	return compactLabels(map[string]string{
		resourceLabelKeyProjectId: r.ProjectId,
		"instance_id":             r.InstanceId,
		"zone":                    r.Zone,
	})
}

func (r *ResourceGkeContainer) Type() string {
	return resourceTypeGkeContainer
}

func (r *ResourceGkeContainer) Labels() map[string]string {
	return compactLabels(map[string]string{
		resourceLabelKeyProjectId: r.ProjectId,
		"cluster_name":            r.ClusterName,
		"instance_id":             r.InstanceId,
		"zone":                    r.Zone,
		"namespace_id":            r.NamespaceId,
		"pod_id":                  r.PodId,
		"container_name":          r.ContainerName,
	})
}

func (r *ResourceGenericNode) Type() string {
	return resourceTypeGenericNode
}

func (r *ResourceGenericNode) Labels() map[string]string {
	return compactLabels(map[string]string{
		resourceLabelKeyProjectId: r.ProjectId,
		"location":                r.Location,
		"namespace":               r.Namespace,
		"node_id":                 r.NodeId,
	})
}

func (r *ResourceGenericTask) Type() string {
	return resourceTypeGenericTask
}

func (r *ResourceGenericTask) Labels() map[string]string {
	return compactLabels(map[string]string{
		resourceLabelKeyProjectId: r.ProjectId,
		"location":                r.Location,
		"namespace":               r.Namespace,
		"job":                     r.Job,
		"task_id":                 r.TaskId,
	})
}

func compactLabels(labels map[string]string) map[string]string {
	return lo.OmitByValues(labels, []string{""})
}

// DetectProjectId returns the project of the GCE metadata server, or "" when
// not running on Google Cloud.
func DetectProjectId(ctx context.Context) string {
	projectId, _ := metadata.ProjectIDWithContext(ctx)
	return projectId
}

func DetectZone(ctx context.Context) string {
	zone, _ := metadata.ZoneWithContext(ctx)
	return zone
}

func DetectInstanceId(ctx context.Context) string {
	instanceId, _ := metadata.InstanceIDWithContext(ctx)
	return instanceId
}

func DetectGkeClusterName(ctx context.Context) string {
	name, _ := metadata.InstanceAttributeValueWithContext(ctx, "cluster-name")
	return name
}

// DetectResource picks the most specific Resource the metadata server can
// describe, falling back to the global resource off Google Cloud.
func DetectResource(ctx context.Context, projectId string) Resource {

	if projectId == "" {
		projectId = DetectProjectId(ctx)
	}

	if !metadata.OnGCE() {
		return &ResourceGlobal{ProjectId: projectId}
	}

	instance := &ResourceGceInstance{
		ProjectId:  projectId,
		InstanceId: DetectInstanceId(ctx),
		Zone:       DetectZone(ctx),
	}

	if instance.InstanceId == "" || instance.Zone == "" {
		return &ResourceGlobal{ProjectId: projectId}
	}

	return instance
}
