package sysLayer

// PackageManager 描述如何用某个包管理器安装软件包.
type PackageManager struct {
	Name string

	// Install is the command prefix; package names are appended.
	Install []string

	// Update, if set, is run once before the first install.
	Update []string
}

// KnownPackageManagers 按探测顺序排列.
var KnownPackageManagers = []PackageManager{
	{
		Name:    "apt",
		Install: []string{"apt", "-y", "--no-install-recommends", "install"},
		Update:  []string{"apt", "update"},
	},
	{
		Name:    "dnf",
		Install: []string{"dnf", "-y", "install"},
	},
	{
		Name:    "yum",
		Install: []string{"yum", "-y", "install"},
	},
	{
		Name:    "zypper",
		Install: []string{"zypper", "install", "-y", "--no-recommends"},
		Update:  []string{"zypper", "refresh"},
	},
	{
		Name:    "pacman",
		Install: []string{"pacman", "-Syu", "--noconfirm"},
	},
}

// DetectPackageManager returns the first known package manager found on h's PATH.
func DetectPackageManager(h Host) (PackageManager, bool) {
	for _, pm := range KnownPackageManagers {
		if _, err := h.LookPath(pm.Name); err == nil {
			return pm, true
		}
	}
	return PackageManager{}, false
}

func (pm PackageManager) InstallCmd(pkgs ...string) []string {
	cmd := make([]string, 0, len(pm.Install)+len(pkgs))
	cmd = append(cmd, pm.Install...)
	return append(cmd, pkgs...)
}
