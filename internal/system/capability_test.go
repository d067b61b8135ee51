package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     Vars
		wantCmd  string
		wantArgs []string
	}{
		{
			name:     "path with spaces stays one argument",
			template: "skopeo inspect docker-archive:${archive}",
			vars:     Vars{"archive": "/mnt/usb/my images/app.tar"},
			wantCmd:  "skopeo",
			wantArgs: []string{"inspect", "docker-archive:/mnt/usb/my images/app.tar"},
		},
		{
			name:     "registry destination",
			template: "skopeo copy docker-archive:${archive} docker://${registry}/${image}:${tag}",
			vars:     Vars{"archive": "/a.tar", "registry": "localhost:5000", "image": "app", "tag": "v1"},
			wantCmd:  "skopeo",
			wantArgs: []string{"copy", "docker-archive:/a.tar", "docker://localhost:5000/app:v1"},
		},
		{
			name:     "quoted script with escaped dollar",
			template: `sh -c "echo $$1" _ ${device}`,
			vars:     Vars{"device": "/dev/sdb1"},
			wantCmd:  "sh",
			wantArgs: []string{"-c", "echo $1", "_", "/dev/sdb1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.template)
			require.NoError(t, err)

			cmd, args, err := tmpl.Expand(tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestTemplateExpandReportsMissing(t *testing.T) {
	tmpl, err := ParseTemplate("mount ${device} ${mountpoint}")
	require.NoError(t, err)

	_, _, err = tmpl.Expand(Vars{})
	require.Error(t, err)
	assert.Equal(t, KindMalformedInput, KindOf(err))
	assert.Contains(t, err.Error(), "device, mountpoint")
}

func TestParseTemplateRejectsEmpty(t *testing.T) {
	_, err := ParseTemplate("   ")
	assert.Error(t, err)

	_, err = ParseCapabilities(map[Capability]string{CapabilityMount: `mount "unterminated`})
	assert.Error(t, err)
}

func TestCapabilitiesCommands(t *testing.T) {
	caps, err := ParseCapabilities(map[Capability]string{
		CapabilityMount:          "mount ${device} ${mountpoint}",
		CapabilityUnmount:        "umount ${mountpoint}",
		CapabilityInspectArchive: "skopeo inspect docker-archive:${archive}",
		CapabilityCopyArchive:    "skopeo copy docker-archive:${archive} docker://${registry}/${image}:${tag}",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mount", "skopeo", "umount"}, caps.Commands())
}
