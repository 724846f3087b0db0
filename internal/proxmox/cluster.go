package proxmox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

// clusterStatusEntry is one entry of GET /cluster/status. The same list
// mixes one cluster row with one row per node.
type clusterStatusEntry struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Quorate int    `json:"quorate"`
	Nodes   int    `json:"nodes"`
	Online  int    `json:"online"`
	Local   int    `json:"local"`
	IP      string `json:"ip"`
}

// nodeEntry is one entry of GET /nodes
type nodeEntry struct {
	Node   string `json:"node"`
	Status string `json:"status"`
}

// nodeStatusPayload is GET /nodes/{node}/status
type nodeStatusPayload struct {
	CPUInfo struct {
		CPUs  int    `json:"cpus"`
		Model string `json:"model"`
	} `json:"cpuinfo"`
	CPU    float64 `json:"cpu"`
	Memory struct {
		Total int64 `json:"total"`
		Used  int64 `json:"used"`
	} `json:"memory"`
	RootFS struct {
		Total int64 `json:"total"`
		Used  int64 `json:"used"`
	} `json:"rootfs"`
	Uptime  int64         `json:"uptime"`
	LoadAvg []interface{} `json:"loadavg"`
}

// storageEntry is one entry of GET /nodes/{node}/storage
type storageEntry struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Enabled int    `json:"enabled"`
	Shared  int    `json:"shared"`
	Total   int64  `json:"total"`
	Used    int64  `json:"used"`
	Avail   int64  `json:"avail"`
}

// ClusterStatus returns membership and quorum information
func (c *Client) ClusterStatus(ctx context.Context) (*domain.ClusterStatus, error) {
	if cached, ok := c.cacheGet("px:cluster"); ok {
		if status, ok := cached.(*domain.ClusterStatus); ok {
			return status, nil
		}
	}

	var entries []clusterStatusEntry
	if err := c.get(ctx, "/cluster/status", &entries); err != nil {
		return nil, err
	}

	status := &domain.ClusterStatus{}
	for _, e := range entries {
		switch e.Type {
		case "cluster":
			status.Name = e.Name
			status.Quorate = e.Quorate == 1
			status.NodesTotal = e.Nodes
		case "node":
			online := e.Online == 1
			if online {
				status.NodesOnline++
			}
			status.Nodes = append(status.Nodes, domain.ClusterNode{
				Name:   e.Name,
				Online: online,
				IP:     e.IP,
				Local:  e.Local == 1,
			})
		}
	}

	// Standalone hosts answer without a cluster row
	if status.NodesTotal == 0 {
		status.NodesTotal = len(status.Nodes)
	}
	sort.Slice(status.Nodes, func(i, j int) bool { return status.Nodes[i].Name < status.Nodes[j].Name })

	c.cacheSet("px:cluster", status)
	return status, nil
}

// onlineNodes returns the names of nodes currently reported online
func (c *Client) onlineNodes(ctx context.Context) ([]string, error) {
	var entries []nodeEntry
	if err := c.get(ctx, "/nodes", &entries); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Status == "online" {
			names = append(names, e.Node)
		}
	}
	sort.Strings(names)
	return names, nil
}

// NodeStatus returns the resource state of one cluster node
func (c *Client) NodeStatus(ctx context.Context, node string) (*domain.NodeStatus, error) {
	node = strings.TrimSpace(node)
	if node == "" {
		return nil, fmt.Errorf("%w: node name", domain.ErrMissingArgument)
	}

	key := "px:node:" + node
	if cached, ok := c.cacheGet(key); ok {
		if status, ok := cached.(*domain.NodeStatus); ok {
			return status, nil
		}
	}

	var payload nodeStatusPayload
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/status", node), &payload); err != nil {
		return nil, err
	}

	load := make([]string, 0, len(payload.LoadAvg))
	for _, v := range payload.LoadAvg {
		load = append(load, fmt.Sprintf("%v", v))
	}

	status := &domain.NodeStatus{
		Name:        node,
		CPUs:        payload.CPUInfo.CPUs,
		CPUModel:    payload.CPUInfo.Model,
		CPUUsage:    payload.CPU,
		MemoryTotal: payload.Memory.Total,
		MemoryUsed:  payload.Memory.Used,
		RootTotal:   payload.RootFS.Total,
		RootUsed:    payload.RootFS.Used,
		Uptime:      payload.Uptime,
		LoadAvg:     load,
	}

	c.cacheSet(key, status)
	return status, nil
}

// StorageInfo returns the storage pools known to the cluster. Shared pools
// appear once even when several nodes report them.
func (c *Client) StorageInfo(ctx context.Context) ([]domain.StoragePool, error) {
	if cached, ok := c.cacheGet("px:storage"); ok {
		if pools, ok := cached.([]domain.StoragePool); ok {
			return pools, nil
		}
	}

	nodes, err := c.onlineNodes(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	pools := make([]domain.StoragePool, 0)

	for _, node := range nodes {
		var entries []storageEntry
		if err := c.get(ctx, fmt.Sprintf("/nodes/%s/storage", node), &entries); err != nil {
			return nil, err
		}

		for _, e := range entries {
			shared := e.Shared == 1
			if shared && seen[e.Storage] {
				continue
			}
			seen[e.Storage] = true

			pool := domain.StoragePool{
				Name:       e.Storage,
				Type:       e.Type,
				TotalBytes: e.Total,
				UsedBytes:  e.Used,
				AvailBytes: e.Avail,
				Enabled:    e.Enabled == 1,
				Shared:     shared,
				Content:    e.Content,
			}
			if !shared {
				pool.Node = node
			}
			pools = append(pools, pool)
		}
	}

	sort.Slice(pools, func(i, j int) bool {
		if pools[i].Name != pools[j].Name {
			return pools[i].Name < pools[j].Name
		}
		return pools[i].Node < pools[j].Node
	})

	c.cacheSet("px:storage", pools)
	return pools, nil
}
