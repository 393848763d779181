package pdf

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// PDFServerInfoRequest carries what the transport layer knows about itself
type PDFServerInfoRequest struct {
	ServerName    string
	Version       string
	Tools         []ToolInfo
	UsageGuidance string
}

// directoryCache keeps the last directory listing for a short time so that
// repeated server info calls do not rescan large trees
type directoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	directory string
	files     []FileInfo
	updated   time.Time
}

func newDirectoryCache(ttl time.Duration) *directoryCache {
	return &directoryCache{ttl: ttl}
}

func (c *directoryCache) get(directory string) ([]FileInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.directory != directory || time.Since(c.updated) > c.ttl {
		return nil, false
	}
	return c.files, true
}

func (c *directoryCache) set(directory string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.directory = directory
	c.files = files
	c.updated = time.Now()
}

// serverInfo assembles PDFServerInfoResult values
type serverInfo struct {
	service *Service
	cache   *directoryCache
	limit   int
	timeout time.Duration
}

func newServerInfo(service *Service) *serverInfo {
	return &serverInfo{
		service: service,
		cache:   newDirectoryCache(time.Minute),
		limit:   100,
		timeout: 5 * time.Second,
	}
}

func (p *serverInfo) get(ctx context.Context, req PDFServerInfoRequest) *PDFServerInfoResult {
	dir := p.service.pathValidator.GetConfiguredDirectory()

	return &PDFServerInfoResult{
		ServerName:        req.ServerName,
		Version:           req.Version,
		DefaultDirectory:  dir,
		OutputDirectory:   p.service.outputDirectory,
		MaxFileSize:       p.service.maxFileSize,
		AvailableTools:    req.Tools,
		DirectoryContents: p.listDirectory(ctx, dir),
		UsageGuidance:     req.UsageGuidance,
		Host:              hostInfo(ctx),
	}
}

// listDirectory returns cached contents or scans with a time limit. A failed or
// slow scan yields an empty listing.
func (p *serverInfo) listDirectory(ctx context.Context, dir string) []FileInfo {
	if files, ok := p.cache.get(dir); ok {
		return files
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resultChan := make(chan []FileInfo, 1)
	go func() {
		files, err := p.service.search.FindFilesLimited(dir, p.limit)
		if err != nil {
			files = []FileInfo{}
		}
		resultChan <- files
	}()

	select {
	case files := <-resultChan:
		p.cache.set(dir, files)
		return files
	case <-ctx.Done():
		return []FileInfo{}
	}
}

func hostInfo(ctx context.Context) HostInfo {
	var info HostInfo
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryAvailable = vm.Available
	}
	return info
}
