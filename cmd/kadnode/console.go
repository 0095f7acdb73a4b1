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
	"crypto/sha1"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/kadnet/kad/internal/debug"
	"github.com/kadnet/kad/internal/id"
	"github.com/kadnet/kad/internal/node"
	"github.com/kadnet/kad/internal/routing"
	"github.com/kadnet/kad/logger"
)

var consoleCommand = cli.Command{
	Action: runConsole,
	Name:   "console",
	Usage:  "Start a node and attach an interactive command console",
	Description: `
The console is a REPL exposing the node's public operations: put, get,
provide, resolve, ping, peers and id, plus help, debug, and exit or quit.
Anything else is treated as an unrecognized command.
`,
}

const consoleRPCTimeout = 10 * time.Second

func runConsole(ctx *cli.Context) error {
	if err := debug.Setup(ctx); err != nil {
		return err
	}

	n, cleanup, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	n.Start()
	defer n.Close()
	bootstrap(ctx, n)

	fmt.Printf("kadnode console -- id %s\ntype 'help' for a list of commands\n", n.ID())

	line := liner.NewLiner()
	defer line.Close()

	for {
		input, err := line.Prompt("kad> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if input == "exit" || input == "quit" {
			break
		}
		runCommand(n, input)
	}
	return nil
}

func runCommand(n *node.Node, input string) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Println("commands: id, peers, ping <id> <host:port>, put <key> <value>, get <key>, provide <key> [ttl-seconds], resolve <id>, debug verbosity <level>, debug vmodule <pattern>, exit")
	case "debug":
		cmdDebug(args)
	case "id":
		fmt.Println(logger.ColorGreen(n.ID().String()))
	case "peers":
		printPeers(n)
	case "ping":
		cmdPing(n, args)
	case "put":
		cmdPut(n, args)
	case "get":
		cmdGet(n, args)
	case "provide":
		cmdProvide(n, args)
	case "resolve":
		cmdResolve(n, args)
	default:
		fmt.Printf("%s: unrecognized command, try 'help'\n", cmd)
	}
}

func printPeers(n *node.Node) {
	var count int
	n.Table().Dfs(func(prefix id.ID, cutoff int, entries []*routing.Entry) {
		for _, e := range entries {
			fmt.Printf("%s\n", logger.ColorBlue(e.ID.String()))
			count++
		}
	})
	if count == 0 {
		fmt.Println("(no peers)")
	}
}

func cmdPing(n *node.Node, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: ping <id> <host:port>")
		return
	}
	c, err := parseBootstrapPeer(args[0] + "@" + args[1])
	if err != nil {
		fmt.Println(err)
		return
	}
	ok, addr := n.Ping(c.ID, c.Addresses)
	if ok {
		fmt.Println(logger.ColorGreen(fmt.Sprintf("alive at %s", addr)))
	} else {
		fmt.Println(logger.ColorRed("no response"))
	}
}

// cmdDebug adjusts glog's verbosity ceiling or per-module pattern at
// runtime, without restarting the node, via the shared debug.Handler.
func cmdDebug(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: debug verbosity <level> | debug vmodule <pattern>")
		return
	}
	switch args[0] {
	case "verbosity":
		level, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("bad level:", err)
			return
		}
		debug.Handler.Verbosity(level)
	case "vmodule":
		if err := debug.Handler.Vmodule(args[1]); err != nil {
			fmt.Println(err)
		}
	default:
		fmt.Printf("%s: unrecognized debug subcommand\n", args[0])
	}
}

// keyFor hashes an arbitrary console key string down to the 160-bit
// identifier space the DHT keys its records by, the same width sha1
// happens to produce.
func keyFor(s string) id.ID {
	sum := sha1.Sum([]byte(s))
	k, _ := id.FromBytes(sum[:])
	return k
}

func cmdPut(n *node.Node, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value...>")
		return
	}
	key := keyFor(args[0])
	value := []byte(strings.Join(args[1:], " "))

	ctx, cancel := context.WithTimeout(context.Background(), consoleRPCTimeout)
	defer cancel()
	kv, err := n.Put(ctx, key, value)
	if err != nil {
		fmt.Println(logger.ColorRed(err.Error()))
		return
	}
	fmt.Printf("stored %s at %s\n", key, kv.Origin.ID)
}

func cmdGet(n *node.Node, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")
		return
	}
	key := keyFor(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), consoleRPCTimeout)
	defer cancel()
	result := n.Get(ctx, key, 1, 1)
	if !result.Found {
		fmt.Println(logger.ColorRed("not found"))
		return
	}
	fmt.Printf("%s (%d responses)\n", string(result.Best.Value), result.Count)
}

func cmdProvide(n *node.Node, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: provide <key> [ttl-seconds]")
		return
	}
	key := keyFor(args[0])
	ttl := 24 * time.Hour
	if len(args) > 1 {
		secs, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("bad ttl:", err)
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), consoleRPCTimeout)
	defer cancel()
	if _, err := n.Provide(ctx, key, time.Now().Add(ttl)); err != nil {
		fmt.Println(logger.ColorRed(err.Error()))
		return
	}
	fmt.Println(logger.ColorGreen("announced"))
}

func cmdResolve(n *node.Node, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: resolve <id>")
		return
	}
	target, err := id.FromString(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), consoleRPCTimeout)
	defer cancel()
	addrs, err := n.Resolve(ctx, target, true)
	if err != nil {
		fmt.Println(logger.ColorRed(err.Error()))
		return
	}
	for _, a := range addrs {
		fmt.Println(logger.ColorYellow(a.String()))
	}
}
