// File: fake/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Node description for the simulator, loadable from YAML.

package fake

import (
	"fmt"
	"io"
	"os"

	"github.com/momentics/hwbarrier/affinity"
	"gopkg.in/yaml.v2"
)

// CMGConfig lists the logical CPUs of one CMG; position in the list is the physical PE number.
type CMGConfig struct {
	CPUs []int `yaml:"cpus"`
}

// Config describes a simulated node.
type Config struct {
	CMGs         []CMGConfig `yaml:"cmgs"`
	BladesPerCMG int         `yaml:"blades_per_cmg"`
	WindowsPerPE int         `yaml:"windows_per_pe"`
	MaxPEPerCMG  int         `yaml:"max_pe_per_cmg"`
	// Offline CPUs exist but cannot run threads.
	Offline []int `yaml:"offline"`
	// Restricted CPUs are online but outside the process cpuset.
	Restricted []int `yaml:"restricted"`
}

// DefaultConfig mirrors an A64FX node: 4 CMGs of 12 PEs, 6 blades per CMG, 4 windows per PE.
func DefaultConfig() Config {
	cfg := Config{BladesPerCMG: 6, WindowsPerPE: 4, MaxPEPerCMG: 13}
	for c := 0; c < 4; c++ {
		var cpus []int
		for i := 0; i < 12; i++ {
			cpus = append(cpus, c*12+i)
		}
		cfg.CMGs = append(cfg.CMGs, CMGConfig{CPUs: cpus})
	}
	return cfg
}

// LoadConfig decodes a YAML node description. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("fake: decode node config: %w", err)
	}
	if cfg.MaxPEPerCMG == 0 {
		for _, c := range cfg.CMGs {
			if len(c.CPUs) > cfg.MaxPEPerCMG {
				cfg.MaxPEPerCMG = len(c.CPUs)
			}
		}
	}
	return cfg, cfg.Validate()
}

// LoadConfigFile reads a YAML node description from path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("fake: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// Validate checks the shape of the node.
func (c Config) Validate() error {
	if len(c.CMGs) == 0 || len(c.CMGs) >= 0xFF {
		return fmt.Errorf("fake: need 1..254 CMGs, got %d", len(c.CMGs))
	}
	if c.BladesPerCMG < 1 || c.BladesPerCMG > 64 {
		return fmt.Errorf("fake: blades_per_cmg %d out of 1..64", c.BladesPerCMG)
	}
	if c.WindowsPerPE < 1 || c.WindowsPerPE > 64 {
		return fmt.Errorf("fake: windows_per_pe %d out of 1..64", c.WindowsPerPE)
	}
	seen := make(map[int]int)
	for i, cmg := range c.CMGs {
		if len(cmg.CPUs) > 64 {
			return fmt.Errorf("fake: CMG%d has %d PEs, at most 64", i, len(cmg.CPUs))
		}
		for _, cpu := range cmg.CPUs {
			if cpu < 0 || cpu >= affinity.MaxCPUs {
				return fmt.Errorf("fake: CMG%d: cpu %d out of range", i, cpu)
			}
			if prev, dup := seen[cpu]; dup {
				return fmt.Errorf("fake: cpu %d in CMG%d and CMG%d", cpu, prev, i)
			}
			seen[cpu] = i
		}
	}
	return nil
}
