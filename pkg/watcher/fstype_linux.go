//go:build linux

package watcher

import "golang.org/x/sys/unix"

// statfs f_type magic numbers, from linux/magic.h.
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517b
	magicSMB2  = 0xfe534d42
	magicCIFS  = 0xff534d42
	magicFUSE  = 0x65735546
	magicV9FS  = 0x01021997
	magicCODA  = 0x73757245
	magicAFS   = 0x5346414f
	magicCEPH  = 0x00c36400
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case magicNFS, magicCODA, magicAFS, magicCEPH, magicV9FS:
		return FSTypeNFS
	case magicSMB, magicSMB2, magicCIFS:
		return FSTypeSMB
	case magicFUSE:
		// sshfs and other FUSE mounts share a magic number.
		return FSTypeFUSE
	}
	return FSTypeLocal
}
