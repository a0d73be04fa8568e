// Copyright 2022 Metalake Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/metalakehq/metalake/pkg/config"
	"github.com/metalakehq/metalake/pkg/logutil"
	"github.com/metalakehq/metalake/pkg/meta/db"
)

func waitSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGINT)
	<-sigchan
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s configFile\n", os.Args[0])
		os.Exit(-1)
	}
	flag.Parse()

	params := config.NewDefaultParameters()
	if err := config.LoadParametersFromFile(os.Args[1], params); err != nil {
		fmt.Printf("error:%v\n", err)
		os.Exit(-1)
	}
	logutil.SetupGlobalLogger(params.Log)

	engine, err := db.Open(params.DataDir, db.OptionsFromParameters(params))
	if err != nil {
		logutil.Errorf("open %s: %v", params.DataDir, err)
		os.Exit(-1)
	}

	fmt.Println("Shutdown The Engine With Ctrl+C | Ctrl+\\.")
	waitSignal()

	if err = engine.Close(); err != nil {
		logutil.Errorf("close: %v", err)
	}
	fmt.Println("\rBye!")
}
