// Package domain contains interfaces that define contracts for the application.
package domain

import (
	"context"
)

// Client defines the cluster operations the dispatcher needs from a Proxmox
// backend. Implementations must be safe for concurrent use.
type Client interface {
	// ListVMs returns every QEMU guest visible across the cluster
	ListVMs(ctx context.Context) ([]VMSummary, error)

	// ListContainers returns every LXC container visible across the cluster
	ListContainers(ctx context.Context) ([]ContainerSummary, error)

	// StartVM powers on a guest; the VM reference may be a numeric id or a name
	StartVM(ctx context.Context, vm string) (task string, err error)

	// StopVM powers off a guest
	StopVM(ctx context.Context, vm string) (task string, err error)

	// RestartVM reboots a guest
	RestartVM(ctx context.Context, vm string) (task string, err error)

	// VMStatus returns the detailed state of a single guest
	VMStatus(ctx context.Context, vm string) (*VMStatus, error)

	// CreateVM provisions a new guest from the given parameters
	CreateVM(ctx context.Context, params CreateParams) (*CreateInfo, error)

	// DeleteVM removes a guest; the guest must be stopped first
	DeleteVM(ctx context.Context, vm string) (task string, err error)

	// ClusterStatus returns membership and quorum information
	ClusterStatus(ctx context.Context) (*ClusterStatus, error)

	// NodeStatus returns the resource state of one cluster node
	NodeStatus(ctx context.Context, node string) (*NodeStatus, error)

	// StorageInfo returns the storage pools known to the cluster
	StorageInfo(ctx context.Context) ([]StoragePool, error)
}

// Cache defines the interface for caching data
type Cache interface {
	// Get retrieves a value from cache
	Get(key string) (interface{}, bool)

	// Set stores a value in cache with expiration
	Set(key string, value interface{}, ttlSeconds int)

	// Delete removes a value from cache
	Delete(key string)

	// Clear removes all values from cache
	Clear()
}

// Logger defines the logging interface used throughout the application
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
