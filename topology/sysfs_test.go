package topology_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momentics/hwbarrier/topology"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func cleanTree() map[string]string {
	return map[string]string{
		"hwinfo":             "2 2 4 13\n",
		"CMG0/used_bb_bmap":  "0000\n",
		"CMG0/used_bw_bmap":  "12 0000\n13 0000\n",
		"CMG0/init_sync_bb0": "0000\n0000\n",
		"CMG0/init_sync_bb1": "0000\n0000\n",
		"CMG1/used_bb_bmap":  "0\n",
		"CMG1/used_bw_bmap":  "24 0\n",
		"CMG1/init_sync_bb0": "",
		"CMG1/init_sync_bb1": "",
	}
}

func TestSysfs_HWInfo(t *testing.T) {
	s := topology.Sysfs{Root: writeTree(t, cleanTree())}
	info, err := s.HWInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.CMGs != 2 || info.BladesPerCMG != 2 || info.WindowsPerPE != 4 || info.MaxPEPerCMG != 13 {
		t.Errorf("HWInfo = %+v", info)
	}
}

func TestSysfs_HWInfoMalformed(t *testing.T) {
	s := topology.Sysfs{Root: writeTree(t, map[string]string{"hwinfo": "4 6\n"})}
	if _, err := s.HWInfo(); err == nil {
		t.Error("expected error for short hwinfo")
	}
}

func TestCheckClean_AllFree(t *testing.T) {
	s := topology.Sysfs{Root: writeTree(t, cleanTree())}
	if err := topology.CheckClean(s, false); err != nil {
		t.Errorf("CheckClean: %v", err)
	}
}

func TestCheckClean_ReportsBusy(t *testing.T) {
	files := cleanTree()
	files["CMG0/used_bb_bmap"] = "0002\n"
	files["CMG0/used_bw_bmap"] = "12 0001\n13 0000\n"
	files["CMG0/init_sync_bb1"] = "3000\n1000\n"
	s := topology.Sysfs{Root: writeTree(t, files)}

	st, err := topology.Inspect(s, false)
	if err != nil {
		t.Fatal(err)
	}
	if st.Clean() {
		t.Fatal("status reported clean")
	}
	if st.Blades[0] != 0x2 {
		t.Errorf("blades = %v", st.Blades)
	}
	if st.Windows[0][12] != 0x1 {
		t.Errorf("windows = %v", st.Windows)
	}
	if v := st.InitSync[[2]int{0, 1}]; v != [2]uint64{0x3000, 0x1000} {
		t.Errorf("init sync = %v", v)
	}

	err = topology.CheckClean(s, false)
	if err == nil || !strings.Contains(err.Error(), "used_bb_bmap CMG0=0002") {
		t.Errorf("CheckClean = %v", err)
	}
	// sync state alone is ignored when skipped
	files = cleanTree()
	files["CMG0/init_sync_bb1"] = "3000\n1000\n"
	s = topology.Sysfs{Root: writeTree(t, files)}
	if err := topology.CheckClean(s, true); err != nil {
		t.Errorf("CheckClean(skip) = %v", err)
	}
}

func TestCheckClean_MissingFiles(t *testing.T) {
	s := topology.Sysfs{Root: writeTree(t, map[string]string{"hwinfo": "1 1 4 12\n"})}
	if err := topology.CheckClean(s, false); err == nil {
		t.Error("expected error when CMG files are missing")
	}
}
