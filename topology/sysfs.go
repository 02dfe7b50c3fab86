// File: topology/sysfs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Topology fact sheet and resource bitmaps exported by the driver in sysfs.

package topology

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/momentics/hwbarrier/api"
)

// Sysfs reads the driver's sysfs directory, normally /sys/class/misc/fujitsu_hwb.
type Sysfs struct {
	Root string
}

var _ api.Diagnostics = Sysfs{}

func (s Sysfs) read(parts ...string) ([]byte, error) {
	p := filepath.Join(append([]string{s.Root}, parts...)...)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	return b, nil
}

func cmgDir(cmg int) string { return "CMG" + strconv.Itoa(cmg) }

// HWInfo parses "<cmgs> <blades> <windows> <max_pe_per_cmg>".
func (s Sysfs) HWInfo() (api.TopologyInfo, error) {
	var info api.TopologyInfo
	b, err := s.read("hwinfo")
	if err != nil {
		return info, err
	}
	f := strings.Fields(string(b))
	if len(f) < 4 {
		return info, fmt.Errorf("topology: hwinfo: want 4 fields, got %d", len(f))
	}
	vals := make([]int, 4)
	for i := range vals {
		if vals[i], err = strconv.Atoi(f[i]); err != nil {
			return info, fmt.Errorf("topology: hwinfo field %d: %w", i, err)
		}
	}
	info.CMGs, info.BladesPerCMG, info.WindowsPerPE, info.MaxPEPerCMG = vals[0], vals[1], vals[2], vals[3]
	return info, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return strconv.ParseUint(s, 16, 64)
}

// UsedBlades parses CMG<n>/used_bb_bmap.
func (s Sysfs) UsedBlades(cmg int) (uint64, error) {
	b, err := s.read(cmgDir(cmg), "used_bb_bmap")
	if err != nil {
		return 0, err
	}
	v, err := parseHex(string(b))
	if err != nil {
		return 0, fmt.Errorf("topology: used_bb_bmap: %w", err)
	}
	return v, nil
}

// UsedWindows parses CMG<n>/used_bw_bmap, one "<cpuid> <hex>" line per PE.
func (s Sysfs) UsedWindows(cmg int) (map[int]uint64, error) {
	b, err := s.read(cmgDir(cmg), "used_bw_bmap")
	if err != nil {
		return nil, err
	}
	out := make(map[int]uint64)
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		if len(f) != 2 {
			return nil, fmt.Errorf("topology: used_bw_bmap: malformed line %q", sc.Text())
		}
		cpu, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("topology: used_bw_bmap cpu: %w", err)
		}
		v, err := parseHex(f[1])
		if err != nil {
			return nil, fmt.Errorf("topology: used_bw_bmap bitmap: %w", err)
		}
		out[cpu] = v
	}
	return out, sc.Err()
}

// InitSync parses CMG<n>/init_sync_bb<m>: mask and BST as two hex lines.
// An empty file means the CMG has no PE and reads as zero.
func (s Sysfs) InitSync(cmg, bb int) (uint64, uint64, error) {
	b, err := s.read(cmgDir(cmg), "init_sync_bb"+strconv.Itoa(bb))
	if err != nil {
		return 0, 0, err
	}
	f := strings.Fields(string(b))
	if len(f) == 0 {
		return 0, 0, nil
	}
	if len(f) != 2 {
		return 0, 0, fmt.Errorf("topology: init_sync_bb%d: want 2 fields, got %d", bb, len(f))
	}
	mask, err := parseHex(f[0])
	if err != nil {
		return 0, 0, fmt.Errorf("topology: init_sync mask: %w", err)
	}
	bst, err := parseHex(f[1])
	if err != nil {
		return 0, 0, fmt.Errorf("topology: init_sync bst: %w", err)
	}
	return mask, bst, nil
}
