package proxmox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
)

// fakeAPI serves a small two node cluster with the shapes the real API
// uses. Every request path is appended to requests.
func fakeAPI(requests *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/api2/json/cluster/resources":
			w.Write([]byte(`{"data":[
				{"id":"qemu/102","type":"qemu","vmid":102,"name":"test01","node":"pve2","status":"stopped","maxcpu":1,"maxmem":2147483648,"maxdisk":17179869184},
				{"id":"qemu/101","type":"qemu","vmid":101,"name":"web01","node":"pve1","status":"running","cpu":0.04,"maxcpu":2,"mem":1073741824,"maxmem":4294967296,"disk":0,"maxdisk":34359738368,"uptime":7200},
				{"id":"lxc/200","type":"lxc","vmid":200,"name":"proxy01","node":"pve1","status":"running","cpu":0.01,"maxcpu":1,"mem":268435456,"maxmem":1073741824,"uptime":360}
			]}`))
		case r.URL.Path == "/api2/json/cluster/nextid":
			w.Write([]byte(`{"data":"105"}`))
		case r.URL.Path == "/api2/json/cluster/status":
			w.Write([]byte(`{"data":[
				{"id":"cluster","type":"cluster","name":"prod","quorate":1,"nodes":2},
				{"id":"node/pve1","type":"node","name":"pve1","online":1,"local":1,"ip":"10.0.0.1"},
				{"id":"node/pve2","type":"node","name":"pve2","online":0,"ip":"10.0.0.2"}
			]}`))
		case r.URL.Path == "/api2/json/nodes":
			w.Write([]byte(`{"data":[
				{"node":"pve2","status":"offline"},
				{"node":"pve1","status":"online"}
			]}`))
		case r.URL.Path == "/api2/json/nodes/pve1/status":
			w.Write([]byte(`{"data":{
				"cpuinfo":{"cpus":16,"model":"AMD EPYC 7302P"},
				"cpu":0.0625,
				"memory":{"total":68719476736,"used":17179869184},
				"rootfs":{"total":107374182400,"used":21474836480},
				"uptime":864000,
				"loadavg":["0.52","0.48","0.45"]
			}}`))
		case r.URL.Path == "/api2/json/nodes/pve1/storage":
			w.Write([]byte(`{"data":[
				{"storage":"local","type":"dir","content":"iso,backup","enabled":1,"shared":0,"total":107374182400,"used":21474836480,"avail":85899345920},
				{"storage":"ceph-pool","type":"rbd","content":"images","enabled":1,"shared":1,"total":2199023255552,"used":879609302220,"avail":1319413953332}
			]}`))
		case r.URL.Path == "/api2/json/nodes/pve1/qemu/101/status/current":
			w.Write([]byte(`{"data":{
				"name":"web01","status":"running","cpus":2,"cpu":0.04,
				"mem":1073741824,"maxmem":4294967296,"disk":0,"maxdisk":34359738368,"uptime":7200
			}}`))
		case strings.HasSuffix(r.URL.Path, "/status/start"),
			strings.HasSuffix(r.URL.Path, "/status/stop"),
			strings.HasSuffix(r.URL.Path, "/status/reboot"):
			w.Write([]byte(`{"data":"UPID:pve1:0001A2B3:004B5C6D:65F01234:qmstart:101:root@pam!nli:"}`))
		case r.URL.Path == "/api2/json/nodes/pve1/qemu" && r.Method == http.MethodPost:
			r.ParseForm()
			w.Write([]byte(`{"data":"UPID:pve1:0001A2B4:004B5C6E:65F01235:qmcreate:105:root@pam!nli:"}`))
		case r.URL.Path == "/api2/json/nodes/pve2/qemu/102" && r.Method == http.MethodDelete:
			w.Write([]byte(`{"data":"UPID:pve2:0001A2B5:004B5C6F:65F01236:qmdestroy:102:root@pam!nli:"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"data":null}`))
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.Proxmox.APIURL = server.URL
	cfg.Proxmox.TokenID = "root@pam!nli"
	cfg.Proxmox.TokenSecret = "s3cret"
	cfg.Cache.Enabled = false
	return NewClient(cfg)
}

func TestAuthHeader(t *testing.T) {
	var got string
	var requests []string
	inner := fakeAPI(&requests)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		inner(w, r)
	}))

	if _, err := client.ListVMs(context.Background()); err != nil {
		t.Fatalf("ListVMs() error = %v", err)
	}

	want := "PVEAPIToken=root@pam!nli=s3cret"
	if got != want {
		t.Errorf("Authorization header = %q, want %q", got, want)
	}
}

func TestListVMs(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	vms, err := client.ListVMs(context.Background())
	if err != nil {
		t.Fatalf("ListVMs() error = %v", err)
	}

	if len(vms) != 2 {
		t.Fatalf("ListVMs() returned %d guests, want 2", len(vms))
	}
	// Sorted by vmid even though the API answered out of order
	if vms[0].VMID != 101 || vms[1].VMID != 102 {
		t.Errorf("vm order = [%d %d], want [101 102]", vms[0].VMID, vms[1].VMID)
	}
	if vms[0].Name != "web01" || vms[0].Node != "pve1" || !vms[0].IsRunning() {
		t.Errorf("vm 101 = %+v, want running web01 on pve1", vms[0])
	}
	if vms[0].MaxMem != 4294967296 {
		t.Errorf("vm 101 MaxMem = %d, want 4294967296", vms[0].MaxMem)
	}
}

func TestListContainers(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	cts, err := client.ListContainers(context.Background())
	if err != nil {
		t.Fatalf("ListContainers() error = %v", err)
	}

	if len(cts) != 1 {
		t.Fatalf("ListContainers() returned %d containers, want 1", len(cts))
	}
	if cts[0].VMID != 200 || cts[0].Name != "proxy01" {
		t.Errorf("container = %+v, want proxy01 (200)", cts[0])
	}
}

func TestStartVMByID(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	task, err := client.StartVM(context.Background(), "101")
	if err != nil {
		t.Fatalf("StartVM() error = %v", err)
	}
	if !strings.HasPrefix(task, "UPID:") {
		t.Errorf("task = %q, want UPID prefix", task)
	}

	want := "POST /api2/json/nodes/pve1/qemu/101/status/start"
	if !contains(requests, want) {
		t.Errorf("requests = %v, want to include %q", requests, want)
	}
}

func TestStartVMByName(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	if _, err := client.StartVM(context.Background(), "WEB01"); err != nil {
		t.Fatalf("StartVM() by name error = %v", err)
	}

	want := "POST /api2/json/nodes/pve1/qemu/101/status/start"
	if !contains(requests, want) {
		t.Errorf("requests = %v, want to include %q", requests, want)
	}
}

func TestStopAndRestartPaths(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))
	ctx := context.Background()

	if _, err := client.StopVM(ctx, "101"); err != nil {
		t.Fatalf("StopVM() error = %v", err)
	}
	if _, err := client.RestartVM(ctx, "101"); err != nil {
		t.Fatalf("RestartVM() error = %v", err)
	}

	for _, want := range []string{
		"POST /api2/json/nodes/pve1/qemu/101/status/stop",
		"POST /api2/json/nodes/pve1/qemu/101/status/reboot",
	} {
		if !contains(requests, want) {
			t.Errorf("requests = %v, want to include %q", requests, want)
		}
	}
}

func TestVMStatus(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	status, err := client.VMStatus(context.Background(), "101")
	if err != nil {
		t.Fatalf("VMStatus() error = %v", err)
	}

	if status.VMID != 101 || status.Name != "web01" || status.Node != "pve1" {
		t.Errorf("status = %+v, want vm 101 web01 on pve1", status)
	}
	if status.CPUs != 2 {
		t.Errorf("CPUs = %d, want 2", status.CPUs)
	}
	if status.Uptime != 7200 {
		t.Errorf("Uptime = %d, want 7200", status.Uptime)
	}
}

func TestVMNotFound(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	_, err := client.StartVM(context.Background(), "999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("StartVM(999) error = %v, want ErrNotFound", err)
	}

	_, err = client.VMStatus(context.Background(), "nosuchvm")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("VMStatus(nosuchvm) error = %v, want ErrNotFound", err)
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("storage does not exist"))
	}))

	_, err := client.ListVMs(context.Background())
	if err == nil {
		t.Fatal("ListVMs() error = nil, want APIError")
	}

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *domain.APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "storage does not exist") {
		t.Errorf("Message = %q, want body text included", apiErr.Message)
	}
}

func TestNextID(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	id, err := client.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if id != 105 {
		t.Errorf("NextID() = %d, want 105", id)
	}
}

func TestCreateVMDefaults(t *testing.T) {
	var form map[string][]string
	var requests []string
	inner := fakeAPI(&requests)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api2/json/nodes/pve1/qemu" && r.Method == http.MethodPost {
			r.ParseForm()
			form = r.PostForm
		}
		inner(w, r)
	}))

	info, err := client.CreateVM(context.Background(), domain.CreateParams{})
	if err != nil {
		t.Fatalf("CreateVM() error = %v", err)
	}

	// vmid from /cluster/nextid, node from the first online node
	if info.VMID != 105 || info.Node != "pve1" {
		t.Errorf("CreateInfo = %+v, want vmid 105 on pve1", info)
	}
	if info.Name != "ubuntu-105" {
		t.Errorf("Name = %q, want ubuntu-105", info.Name)
	}

	if form == nil {
		t.Fatal("create form was never posted")
	}
	checks := map[string]string{
		"vmid":   "105",
		"memory": "1024",
		"cores":  "1",
		"scsi0":  "local-lvm:10",
		"ostype": "l26",
	}
	for key, want := range checks {
		if got := formValue(form, key); got != want {
			t.Errorf("form %s = %q, want %q", key, got, want)
		}
	}
}

func TestCreateVMExplicitParams(t *testing.T) {
	var form map[string][]string
	var requests []string
	inner := fakeAPI(&requests)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/qemu") && r.Method == http.MethodPost {
			r.ParseForm()
			form = r.PostForm
		}
		inner(w, r)
	}))

	params := domain.CreateParams{
		VMID:     150,
		Name:     "build01",
		Node:     "pve1",
		MemoryMB: 2048,
		Cores:    4,
		DiskGB:   40,
		Template: "debian",
	}
	info, err := client.CreateVM(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateVM() error = %v", err)
	}
	if info.VMID != 150 || info.Name != "build01" {
		t.Errorf("CreateInfo = %+v, want vmid 150 build01", info)
	}

	checks := map[string]string{
		"vmid":   "150",
		"name":   "build01",
		"memory": "2048",
		"cores":  "4",
		"scsi0":  "local-lvm:40",
	}
	for key, want := range checks {
		if got := formValue(form, key); got != want {
			t.Errorf("form %s = %q, want %q", key, got, want)
		}
	}

	// No nextid round trip when the vmid is given
	if contains(requests, "GET /api2/json/cluster/nextid") {
		t.Error("CreateVM fetched nextid despite explicit vmid")
	}
}

func TestDeleteVM(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	if _, err := client.DeleteVM(context.Background(), "test01"); err != nil {
		t.Fatalf("DeleteVM() error = %v", err)
	}

	want := "DELETE /api2/json/nodes/pve2/qemu/102"
	if !contains(requests, want) {
		t.Errorf("requests = %v, want to include %q", requests, want)
	}
}

func TestClusterStatus(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	status, err := client.ClusterStatus(context.Background())
	if err != nil {
		t.Fatalf("ClusterStatus() error = %v", err)
	}

	if status.Name != "prod" {
		t.Errorf("Name = %q, want prod", status.Name)
	}
	if !status.Quorate {
		t.Error("Quorate = false, want true")
	}
	if status.NodesOnline != 1 || status.NodesTotal != 2 {
		t.Errorf("nodes = %d/%d, want 1/2", status.NodesOnline, status.NodesTotal)
	}
	if len(status.Nodes) != 2 || status.Nodes[0].Name != "pve1" || !status.Nodes[0].Online {
		t.Errorf("Nodes = %+v, want pve1 online first", status.Nodes)
	}
}

func TestNodeStatus(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	status, err := client.NodeStatus(context.Background(), "pve1")
	if err != nil {
		t.Fatalf("NodeStatus() error = %v", err)
	}

	if status.CPUs != 16 || status.CPUModel != "AMD EPYC 7302P" {
		t.Errorf("cpu info = %d %q, want 16 AMD EPYC 7302P", status.CPUs, status.CPUModel)
	}
	if status.MemoryTotal != 68719476736 {
		t.Errorf("MemoryTotal = %d, want 68719476736", status.MemoryTotal)
	}
	if len(status.LoadAvg) != 3 || status.LoadAvg[0] != "0.52" {
		t.Errorf("LoadAvg = %v, want [0.52 0.48 0.45]", status.LoadAvg)
	}
}

func TestNodeStatusRequiresName(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	_, err := client.NodeStatus(context.Background(), "  ")
	if !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("NodeStatus(blank) error = %v, want ErrMissingArgument", err)
	}
	if len(requests) != 0 {
		t.Errorf("requests = %v, want none for a blank node name", requests)
	}
}

func TestStorageInfo(t *testing.T) {
	var requests []string
	client := newTestClient(t, fakeAPI(&requests))

	pools, err := client.StorageInfo(context.Background())
	if err != nil {
		t.Fatalf("StorageInfo() error = %v", err)
	}

	// pve2 is offline, so only pve1 is asked; one shared + one local pool
	if len(pools) != 2 {
		t.Fatalf("StorageInfo() returned %d pools, want 2", len(pools))
	}
	if pools[0].Name != "ceph-pool" || !pools[0].Shared || pools[0].Node != "" {
		t.Errorf("pools[0] = %+v, want shared ceph-pool without node", pools[0])
	}
	if pools[1].Name != "local" || pools[1].Node != "pve1" {
		t.Errorf("pools[1] = %+v, want local on pve1", pools[1])
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func formValue(form map[string][]string, key string) string {
	if vs, ok := form[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
