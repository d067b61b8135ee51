package config

import (
	"time"

	"github.com/unitexe/skopos/internal/system"
)

type Config struct {
	DebugMode    bool               `key:"debugMode" json:"debug_mode"`
	MountRoot    string             `key:"mountRoot" json:"mount_root"`
	Registry     string             `key:"registry" json:"registry"`
	MountTable   string             `key:"mountTable" json:"mount_table"`
	Devices      DevicesConfig      `key:"devices" json:"devices"`
	Archives     ArchivesConfig     `key:"archives" json:"archives"`
	Capabilities CapabilitiesConfig `key:"capabilities" json:"capabilities"`
	Server       ServerConfig       `key:"server" json:"server"`
}

type DevicesConfig struct {
	DevDir           string `key:"devDir" json:"dev_dir"`
	SysBlockDir      string `key:"sysBlockDir" json:"sys_block_dir"`
	WholeDiskPattern string `key:"wholeDiskPattern" json:"whole_disk_pattern"`
	PartialResults   bool   `key:"partialResults" json:"partial_results"`
}

type ArchivesConfig struct {
	Extension string `key:"extension" json:"extension"`
}

type CapabilitiesConfig struct {
	Timeout        time.Duration `key:"timeout" json:"timeout"`
	Mount          string        `key:"mount" json:"mount"`
	Unmount        string        `key:"unmount" json:"unmount"`
	InspectArchive string        `key:"inspectArchive" json:"inspect_archive"`
	CopyArchive    string        `key:"copyArchive" json:"copy_archive"`
}

// Templates maps each capability to its configured command template
func (c CapabilitiesConfig) Templates() map[system.Capability]string {
	return map[system.Capability]string{
		system.CapabilityMount:          c.Mount,
		system.CapabilityUnmount:        c.Unmount,
		system.CapabilityInspectArchive: c.InspectArchive,
		system.CapabilityCopyArchive:    c.CopyArchive,
	}
}

type ServerConfig struct {
	ShutdownTimeout time.Duration `key:"shutdownTimeout" json:"shutdown_timeout"`
	GRPC            GRPCConfig    `key:"grpc" json:"grpc"`
	HTTP            HTTPConfig    `key:"http" json:"http"`
}

type GRPCConfig struct {
	Port             int `key:"port" json:"port"`
	MaxRecvMsgSizeMb int `key:"maxRecvMsgSizeMb" json:"max_recv_msg_size_mb"`
}

type HTTPConfig struct {
	Enabled bool `key:"enabled" json:"enabled"`
	Port    int  `key:"port" json:"port"`
}
