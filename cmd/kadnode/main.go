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

// kadnode is the command line client for the kad DHT: it runs a node that
// answers the wire protocol, optionally drops into an interactive console,
// and can be driven headless for scripting.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/urfave/cli.v1"

	"github.com/kadnet/kad/internal/debug"
	"github.com/kadnet/kad/logger"
	"github.com/kadnet/kad/logger/glog"
)

// Version is the application revision identifier, settable at link time
// with -ldflags "-X main.Version=...".
var Version = "source"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kadnode"
	}
	return filepath.Join(home, ".kadnode")
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Version = Version
	app.Usage = "the kad DHT command line client"
	app.Action = run
	app.HideVersion = true

	app.Flags = appFlags()
	app.Commands = []cli.Command{
		consoleCommand,
	}
	return app
}

func main() {
	if err := makeApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is the default action: start a node and block until interrupted,
// answering the wire protocol but exposing no interactive console.
func run(ctx *cli.Context) error {
	if err := debug.Setup(ctx); err != nil {
		return err
	}

	n, cleanup, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	n.Start()
	glog.Infof("kadnode: listening as %s", n.ID())
	bootstrap(ctx, n)

	waitForSignal()
	glog.Infof("kadnode: shutting down")
	return n.Close()
}

func init() {
	// Route the package-level logger facade's startup banner through glog
	// too, so --verbosity governs both.
	logger.Printf(logger.InfoLevel, "kadnode starting")
}
