// Package config manages the FreshPots YAML configuration file: remembered
// pots (nicknames and last resolved address) and client preferences such as
// the service type, response delay and poll interval.
//
// The file lives under the user config directory (freshpots/config.yaml in
// $XDG_CONFIG_HOME or ~/.config on Linux, Library/Application Support on
// macOS, %AppData% on Windows). FRESHPOTS_CONFIG overrides the path.
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    return err
//	}
//	registry.SetPotNickname("Kitchen Pot", "Downstairs")
//	return registry.Save()
//
// LoadRegistry reads the file once per process. Saves within a process are
// serialized and replace the file by rename.
package config
