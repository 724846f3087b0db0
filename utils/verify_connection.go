// verify_connection.go - Directly queries the Proxmox VE API to verify connectivity
// Usage: go run verify_connection.go -url https://pve.lab:8006 -token-id 'root@pam!nli' -token-secret '...'
package main

import (
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// versionResponse wraps GET /api2/json/version
type versionResponse struct {
	Data struct {
		Version string `json:"version"`
		Release string `json:"release"`
		RepoID  string `json:"repoid"`
	} `json:"data"`
}

// nodesResponse wraps GET /api2/json/nodes
type nodesResponse struct {
	Data []nodeEntry `json:"data"`
}

type nodeEntry struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

// resourcesResponse wraps GET /api2/json/cluster/resources?type=vm
type resourcesResponse struct {
	Data []vmEntry `json:"data"`
}

type vmEntry struct {
	VMID   int    `json:"vmid"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Type   string `json:"type"`
	Node   string `json:"node"`
	MaxMem int64  `json:"maxmem"`
}

func main() {
	urlFlag := flag.String("url", envOr("PROXMOX_API_URL", "https://localhost:8006"), "Proxmox API base URL")
	tokenIDFlag := flag.String("token-id", os.Getenv("PROXMOX_TOKEN_ID"), "API token id (user@realm!name)")
	tokenSecretFlag := flag.String("token-secret", os.Getenv("PROXMOX_TOKEN_SECRET"), "API token secret")
	verifyTLSFlag := flag.Bool("verify-tls", false, "Verify the API TLS certificate")
	nodeFlag := flag.String("node", "", "Only show guests on this node")
	jsonOutputFlag := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *tokenIDFlag == "" || *tokenSecretFlag == "" {
		fmt.Println("Proxmox VE Connection Verification Tool")
		fmt.Println("========================================")
		fmt.Println("\nUsage: go run verify_connection.go -url <url> -token-id <id> -token-secret <secret> [options]")
		fmt.Println("\nOptions:")
		fmt.Println("  -url          Proxmox API base URL (default: $PROXMOX_API_URL or https://localhost:8006)")
		fmt.Println("  -token-id     API token id, e.g. root@pam!nli (default: $PROXMOX_TOKEN_ID)")
		fmt.Println("  -token-secret API token secret (default: $PROXMOX_TOKEN_SECRET)")
		fmt.Println("  -verify-tls   Verify the TLS certificate (default: false, Proxmox self-signs)")
		fmt.Println("  -node         Only show guests on this node")
		fmt.Println("  -json         Output as JSON")
		fmt.Println("\nExamples:")
		fmt.Println("  go run verify_connection.go -url https://pve.lab:8006 -token-id 'root@pam!nli' -token-secret abc123")
		fmt.Println("  PROXMOX_TOKEN_ID='root@pam!nli' PROXMOX_TOKEN_SECRET=abc123 go run verify_connection.go")
		fmt.Println("  go run verify_connection.go -node pve1 -json")
		os.Exit(0)
	}

	baseURL := strings.TrimRight(*urlFlag, "/")
	auth := fmt.Sprintf("PVEAPIToken=%s=%s", *tokenIDFlag, *tokenSecretFlag)

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !*verifyTLSFlag},
		},
	}

	fmt.Fprintf(os.Stderr, "🔍 Checking Proxmox VE at %s...\n\n", baseURL)

	var version versionResponse
	if err := apiGet(client, baseURL, auth, "/api2/json/version", &version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Version check failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "   Verify the URL, the token and that the token has at least VM.Audit on /")
		os.Exit(1)
	}

	var nodes nodesResponse
	if err := apiGet(client, baseURL, auth, "/api2/json/nodes", &nodes); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Node listing failed: %v\n", err)
		os.Exit(1)
	}

	var resources resourcesResponse
	if err := apiGet(client, baseURL, auth, "/api2/json/cluster/resources?type=vm", &resources); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Guest listing failed: %v\n", err)
		os.Exit(1)
	}

	vms := resources.Data
	if *nodeFlag != "" {
		filtered := vms[:0]
		for _, vm := range vms {
			if strings.EqualFold(vm.Node, *nodeFlag) {
				filtered = append(filtered, vm)
			}
		}
		vms = filtered
	}
	sort.Slice(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	sort.Slice(nodes.Data, func(i, j int) bool { return nodes.Data[i].Node < nodes.Data[j].Node })

	if *jsonOutputFlag {
		outputJSON(baseURL, version, nodes.Data, vms)
	} else {
		outputTable(baseURL, version, nodes.Data, vms)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func apiGet(client *http.Client, baseURL, auth, path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func outputTable(baseURL string, version versionResponse, nodes []nodeEntry, vms []vmEntry) {
	running := 0
	for _, vm := range vms {
		if vm.Status == "running" {
			running++
		}
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 PROXMOX VE - CONNECTION VERIFICATION                         ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  📅 Timestamp: %-62s║\n", time.Now().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("║  🌐 API: %-68s║\n", baseURL)
	fmt.Printf("║  🏷️  Version: pve-manager %-51s║\n", version.Data.Version)
	fmt.Printf("║  🖥️  Nodes: %-65d║\n", len(nodes))
	fmt.Printf("║  📦 Guests: %d total, %d running %-40s║\n", len(vms), running, "")
	fmt.Println("╚══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("┌─── Nodes ──────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Node         │ Status  │ CPU          │ Memory             │ Uptime    │")
	fmt.Println("├──────────────┼─────────┼──────────────┼────────────────────┼───────────┤")
	for _, n := range nodes {
		fmt.Printf("│ %-12s │ %-7s │ %4.1f%% of %2d  │ %8s / %-8s │ %-9s │\n",
			n.Node, n.Status, n.CPU*100, n.MaxCPU,
			formatBytes(n.Mem), formatBytes(n.MaxMem), formatUptime(n.Uptime))
	}
	fmt.Println("└──────────────┴─────────┴──────────────┴────────────────────┴───────────┘")
	fmt.Println()

	fmt.Println("┌─── Guests ─────────────────────────────────────────────────────────────┐")
	fmt.Println("│ VMID │ Name               │ Type │ Node         │ Status   │ Memory   │")
	fmt.Println("├──────┼────────────────────┼──────┼──────────────┼──────────┼──────────┤")
	for _, vm := range vms {
		status := vm.Status
		if vm.Status == "running" {
			status = "🟢 " + status
		} else {
			status = "🔴 " + status
		}
		fmt.Printf("│ %4d │ %-18s │ %-4s │ %-12s │ %-8s │ %-8s │\n",
			vm.VMID, vm.Name, vm.Type, vm.Node, status, formatBytes(vm.MaxMem))
	}
	fmt.Println("└──────┴────────────────────┴──────┴──────────────┴──────────┴──────────┘")
	fmt.Println()

	fmt.Println("✅ Connection verified against: " + baseURL)
}

func outputJSON(baseURL string, version versionResponse, nodes []nodeEntry, vms []vmEntry) {
	output := map[string]interface{}{
		"source":    baseURL,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version.Data.Version,
		"release":   version.Data.Release,
		"nodes":     nodes,
		"guests":    vms,
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonBytes))
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, int(d.Minutes())%60)
}
