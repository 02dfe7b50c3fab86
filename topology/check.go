// File: topology/check.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Verification that every barrier resource of the node is free.

package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/momentics/hwbarrier/api"
)

// Status is the set of busy resources found by Inspect.
type Status struct {
	Info     api.TopologyInfo
	Blades   map[int]uint64         // cmg -> used blade bitmap
	Windows  map[int]map[int]uint64 // cmg -> cpuid -> used window bitmap
	InitSync map[[2]int][2]uint64   // (cmg, bb) -> (mask, bst)
}

// Clean reports whether no resource is in use.
func (st *Status) Clean() bool {
	return len(st.Blades) == 0 && len(st.Windows) == 0 && len(st.InitSync) == 0
}

// Inspect collects every non-zero bitmap exposed by d. When skipInitSync is
// set the per-blade sync state is not read (the sysfs files need root).
func Inspect(d api.Diagnostics, skipInitSync bool) (*Status, error) {
	info, err := d.HWInfo()
	if err != nil {
		return nil, err
	}
	st := &Status{
		Info:     info,
		Blades:   make(map[int]uint64),
		Windows:  make(map[int]map[int]uint64),
		InitSync: make(map[[2]int][2]uint64),
	}
	var errs []error
	for cmg := 0; cmg < info.CMGs; cmg++ {
		if bm, err := d.UsedBlades(cmg); err != nil {
			errs = append(errs, err)
		} else if bm != 0 {
			st.Blades[cmg] = bm
		}

		bw, err := d.UsedWindows(cmg)
		if err != nil {
			errs = append(errs, err)
		}
		for cpu, bm := range bw {
			if bm == 0 {
				continue
			}
			if st.Windows[cmg] == nil {
				st.Windows[cmg] = make(map[int]uint64)
			}
			st.Windows[cmg][cpu] = bm
		}

		if skipInitSync {
			continue
		}
		for bb := 0; bb < info.BladesPerCMG; bb++ {
			mask, bst, err := d.InitSync(cmg, bb)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if mask != 0 || bst != 0 {
				st.InitSync[[2]int{cmg, bb}] = [2]uint64{mask, bst}
			}
		}
	}
	return st, errors.Join(errs...)
}

// CheckClean returns nil when every blade, window and sync state of d is free,
// and otherwise an error naming each busy resource.
func CheckClean(d api.Diagnostics, skipInitSync bool) error {
	st, err := Inspect(d, skipInitSync)
	if err != nil {
		return err
	}
	if st.Clean() {
		return nil
	}
	return fmt.Errorf("topology: resources still in use: %s", st)
}

func (st *Status) String() string {
	var out []string
	for _, cmg := range sortedKeys(st.Blades) {
		out = append(out, fmt.Sprintf("used_bb_bmap CMG%d=%04x", cmg, st.Blades[cmg]))
	}
	for _, cmg := range sortedKeys(st.Windows) {
		for _, cpu := range sortedKeys(st.Windows[cmg]) {
			out = append(out, fmt.Sprintf("used_bw_bmap CMG%d cpu%d=%04x", cmg, cpu, st.Windows[cmg][cpu]))
		}
	}
	keys := make([][2]int, 0, len(st.InitSync))
	for k := range st.InitSync {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		v := st.InitSync[k]
		out = append(out, fmt.Sprintf("init_sync CMG%d BB%d=%04x/%04x", k[0], k[1], v[0], v[1]))
	}
	return fmt.Sprint(out)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
