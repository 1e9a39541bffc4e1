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

//go:build !windows

package nin

import (
	"os/exec"
	"syscall"
)

// shellCommand returns the command to run command through /bin/sh.
func shellCommand(command string) *exec.Cmd {
	cmd := exec.Command("/bin/sh", "-c", command)
	// Put the child in its own process group, so ctrl-c won't reach it and
	// kill() can reach its own children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// kill sends SIGTERM to the process group of the subprocess.
func (s *Subprocess) kill() error {
	return syscall.Kill(-s.cmd.Process.Pid, syscall.SIGTERM)
}
