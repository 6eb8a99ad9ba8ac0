package dbprovisioner

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// save rewrites database_servers.json in full, the shape spec.md §6
// "Persisted files (agent)" names alongside daemon-state.json and
// ftp_credentials.json.
func (p *Provisioner) save() error {
	p.mu.Lock()
	list := make([]*Server, 0, len(p.servers))
	for _, s := range p.servers {
		list = append(list, s)
	}
	p.mu.Unlock()

	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(p.dataDir, "database_servers.json")
	tmp, err := os.CreateTemp(p.dataDir, ".database_servers-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (p *Provisioner) load() error {
	path := filepath.Join(p.dataDir, "database_servers.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var list []*Server
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range list {
		p.servers[s.Type] = s
	}
	return nil
}

// Servers returns every known server, per spec.md §6 "list-servers".
func (p *Provisioner) Servers() []*Server {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := make([]*Server, 0, len(p.servers))
	for _, s := range p.servers {
		list = append(list, s)
	}
	return list
}
