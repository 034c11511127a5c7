package host

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"netsim-consolidate/internal/logging"

	"github.com/sirupsen/logrus"
)

// Info describes the machine that consolidated a batch. It is recorded in
// the manifest next to the datasets.
type Info struct {
	Hostname      string `json:"hostname"`
	OSInfo        string `json:"os"`
	KernelVersion string `json:"kernel_version"`
	CPUVendor     string `json:"cpu_vendor"`
	CPUModel      string `json:"cpu_model"`
	CPUs          int    `json:"cpus"`
}

var (
	globalInfo *Info
	infoOnce   sync.Once
)

// Get returns the host information, collecting it on first use.
func Get() *Info {
	infoOnce.Do(func() {
		globalInfo = collect()
	})
	return globalInfo
}

func collect() *Info {
	logger := logging.GetLogger()

	info := &Info{
		OSInfo: runtime.GOOS + "/" + runtime.GOARCH,
		CPUs:   runtime.NumCPU(),
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	info.Hostname = hostname

	if data, err := os.ReadFile("/proc/version"); err == nil {
		info.KernelVersion = KernelVersion(string(data))
	}
	if info.KernelVersion == "" {
		info.KernelVersion = "unknown"
	}

	if f, err := os.Open("/proc/cpuinfo"); err == nil {
		info.CPUVendor, info.CPUModel = ParseCPUInfo(f)
		f.Close()
	}
	if info.CPUVendor == "" {
		info.CPUVendor = "unknown"
	}
	if info.CPUModel == "" {
		info.CPUModel = "unknown"
	}

	logger.WithFields(logrus.Fields{
		"hostname":  info.Hostname,
		"cpu_model": info.CPUModel,
		"cpus":      info.CPUs,
	}).Debug("Host information collected")

	return info
}

// KernelVersion extracts the release from a /proc/version line.
func KernelVersion(procVersion string) string {
	fields := strings.Fields(procVersion)
	if len(fields) >= 3 {
		return fields[2]
	}
	return ""
}

// ParseCPUInfo returns the first vendor_id and model name of /proc/cpuinfo.
func ParseCPUInfo(r io.Reader) (vendor, model string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "vendor_id":
			if vendor == "" {
				vendor = value
			}
		case "model name":
			if model == "" {
				model = value
			}
		}
		if vendor != "" && model != "" {
			break
		}
	}
	return vendor, model
}
