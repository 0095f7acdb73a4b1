// Copyright 2026 The kad Authors
// This file is part of kad.
//
// kad is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kad is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kad. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/afero"
	"gopkg.in/urfave/cli.v1"

	"github.com/kadnet/kad/internal/clock"
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/identity"
	"github.com/kadnet/kad/internal/node"
	"github.com/kadnet/kad/internal/peer"
	"github.com/kadnet/kad/internal/portmap"
	"github.com/kadnet/kad/internal/transport"
	"github.com/kadnet/kad/logger/glog"
)

const bootstrapLookupTimeout = 30 * time.Second

// buildNode wires a Node from ctx's flags: it loads or generates the local
// key, opens the UDP socket, attempts a port mapping, and constructs the
// Node with the production clock/rand/transport. The returned cleanup stops
// the port-mapping renewal loop; the socket is closed by the Node's Close.
func buildNode(ctx *cli.Context) (*node.Node, func(), error) {
	dataDir := ctx.GlobalString(DataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("kadnode: create datadir %q: %w", dataDir, err)
	}

	fs := afero.NewOsFs()
	ks, err := identity.New(fs, dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("kadnode: open keystore: %w", err)
	}

	kp, err := loadOrCreateKey(fs, ks, dataDir, ctx.GlobalString(KeyFileFlag.Name))
	if err != nil {
		return nil, nil, err
	}

	laddr := ctx.GlobalString(ListenAddrFlag.Name)
	udp, err := transport.ListenUDP(laddr)
	if err != nil {
		return nil, nil, fmt.Errorf("kadnode: %w", err)
	}

	self := udp.LocalAddr()
	var stopRenew chan struct{}
	if !ctx.GlobalBool(NoPortMapFlag.Name) {
		var disc portmap.Discoverer
		self, disc = tryPortMap(self)
		if disc != nil {
			stopRenew = make(chan struct{})
			go renewPortMapLoop(disc, self.Port, stopRenew)
		}
	}

	n := node.New(node.NodeConfig{
		KeyPair:   kp,
		SelfAddr:  self,
		Clock:     clock.Real{},
		Rand:      &clock.CryptoRand{},
		Cfg:       configFromContext(ctx),
		Keystore:  ks,
		Transport: udp,
	})

	cleanup := func() {
		if stopRenew != nil {
			close(stopRenew)
		}
	}
	return n, cleanup, nil
}

// renewPortMapLoop re-invokes ForwardPort every portmap.ReleaseInterval, the
// lease renewal §6's "Address-discovery collaborator" requires since most
// gateways expire a mapping after a bounded lifetime.
func renewPortMapLoop(disc portmap.Discoverer, port uint16, stop <-chan struct{}) {
	ticker := time.NewTicker(portmap.ReleaseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, err := disc.ForwardPort("kad", "udp", int(port)); err != nil || !ok {
				glog.V(2).Infof("kadnode: port map renewal failed: %v", err)
			}
		}
	}
}

// loadOrCreateKey imports the node's identity from keyFile, generating and
// persisting a fresh one on first run (mirrors the teacher's
// accountcmd.go new-account-on-demand flow, minus the JS console wiring).
func loadOrCreateKey(fs afero.Fs, ks *identity.Keystore, dataDir, keyFile string) (*identity.KeyPair, error) {
	exists, err := afero.Exists(fs, filepath.Join(dataDir, keyFile))
	if err != nil {
		return nil, fmt.Errorf("kadnode: stat key file: %w", err)
	}
	if exists {
		pass := promptPassphrase("Passphrase: ")
		kp, err := ks.ImportFile(keyFile, pass)
		if err != nil {
			return nil, fmt.Errorf("kadnode: import key: %w", err)
		}
		return kp, nil
	}

	glog.Infof("kadnode: no key file at %q, generating a new identity", keyFile)
	kp, err := identity.Generate()
	if err != nil {
		return nil, fmt.Errorf("kadnode: generate key: %w", err)
	}
	pass := promptPassphrase("New passphrase (do not forget this): ")
	if err := ks.ExportFile(keyFile, kp, pass); err != nil {
		return nil, fmt.Errorf("kadnode: write key file: %w", err)
	}
	return kp, nil
}

func promptPassphrase(prompt string) string {
	line := liner.NewLiner()
	defer line.Close()
	pass, err := line.Prompt(prompt)
	if err != nil {
		return ""
	}
	return pass
}

func tryPortMap(self peer.Addr) (peer.Addr, portmap.Discoverer) {
	disc, err := portmap.Discover()
	if err != nil {
		glog.V(2).Infof("kadnode: no port mapper found: %v", err)
		return self, nil
	}
	if err := disc.Initialize(false); err != nil {
		glog.V(2).Infof("kadnode: port mapper init failed: %v", err)
		return self, nil
	}
	ext, err := disc.ExternalIP()
	if err != nil {
		glog.V(2).Infof("kadnode: external IP discovery failed: %v", err)
		return self, nil
	}
	ok, err := disc.ForwardPort("kad", "udp", int(self.Port))
	if err != nil || !ok {
		glog.V(2).Infof("kadnode: port forwarding failed: %v", err)
		return self, nil
	}
	mapped := peer.Addr{Transport: self.Transport, Host: ext.String(), Port: self.Port}
	glog.Infof("kadnode: mapped external address %s", mapped)
	return mapped, disc
}

// parseBootstrapPeer parses "id@host:port" as given to --bootstrap.
func parseBootstrapPeer(s string) (peer.Contact, error) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) != 2 {
		return peer.Contact{}, fmt.Errorf("kadnode: bootstrap peer %q: want id@host:port", s)
	}
	pid, err := id.FromString(parts[0])
	if err != nil {
		return peer.Contact{}, fmt.Errorf("kadnode: bootstrap peer %q: %w", s, err)
	}
	host, portStr, err := splitHostPort(parts[1])
	if err != nil {
		return peer.Contact{}, fmt.Errorf("kadnode: bootstrap peer %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return peer.Contact{}, fmt.Errorf("kadnode: bootstrap peer %q: bad port: %w", s, err)
	}
	return peer.Contact{ID: pid, Addresses: []peer.Addr{{Transport: "udp", Host: host, Port: uint16(port)}}}, nil
}

func splitHostPort(s string) (string, string, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", "", fmt.Errorf("missing port")
	}
	return s[:i], s[i+1:], nil
}

// bootstrap pings every configured seed peer and, once at least one is
// live, runs a self-lookup to seed the routing trie beyond the immediate
// seeds (classic Kademlia join, §4.1/§4.3).
func bootstrap(ctx *cli.Context, n *node.Node) {
	seeds := ctx.GlobalStringSlice(BootstrapFlag.Name)
	if len(seeds) == 0 {
		return
	}

	var live int
	for _, s := range seeds {
		c, err := parseBootstrapPeer(s)
		if err != nil {
			glog.Warningf("%v", err)
			continue
		}
		ok, _ := n.Ping(c.ID, c.Addresses)
		if ok {
			live++
		} else {
			glog.V(2).Infof("kadnode: bootstrap peer %s did not respond", s)
		}
	}

	if live == 0 {
		glog.Warningf("kadnode: no bootstrap peer responded")
		return
	}

	ctxLookup, cancel := context.WithTimeout(context.Background(), bootstrapLookupTimeout)
	defer cancel()
	n.Lookup(ctxLookup, n.ID())
}
