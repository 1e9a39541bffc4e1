// Copyright 2012 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build windows

package nin

import (
	"os/exec"
	"syscall"
)

// shellCommand returns the command to run command through cmd.exe.
func shellCommand(command string) *exec.Cmd {
	cmd := exec.Command("cmd.exe")
	// cmd.exe does its own parsing, pass the command line as-is.
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: "cmd.exe /c " + command}
	return cmd
}

func (s *Subprocess) kill() error {
	return s.cmd.Process.Kill()
}
