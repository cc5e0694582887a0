package blk

// Raw JSON representation from lsblk --bytes --json
type rawTree struct {
	Blockdevices []rawDevice `json:"blockdevices"`
}

type rawDevice struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Size     any         `json:"size"` // number (bytes) when using --bytes
	Type     string      `json:"type"`
	Rota     *bool       `json:"rota,omitempty"`
	PartN    *int        `json:"partn,omitempty"`
	Children []rawDevice `json:"children,omitempty"`
}

// Partition is one entry of a disk's partition table.
type Partition struct {
	Number    int
	Path      string
	SizeBytes uint64
}

// Disk is a whole block device and its partition table.
type Disk struct {
	Path       string
	SizeBytes  uint64
	Rota       *bool
	Partitions []Partition
}

// NextPartition returns the first free partition number after the highest
// one in use.
func (d Disk) NextPartition() int {
	n := 0
	for _, p := range d.Partitions {
		if p.Number > n {
			n = p.Number
		}
	}
	return n + 1
}
