// Package main is the entry point for the standalone Proxmox NLI web server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/controller"
	"github.com/proxmox-nli/internal/web"
)

func main() {
	port := flag.Int("port", 8000, "Port to run the web server on")
	demo := flag.Bool("demo", false, "Use the built-in simulated cluster")
	flag.Parse()

	fmt.Println("🚀 Proxmox NLI - Web Console")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if *demo {
		config.Get().Proxmox.Backend = "sim"
	}

	ctrl, err := controller.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	server := web.NewServer(ctrl, *port)
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
