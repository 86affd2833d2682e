package osapi

// Status is the lifecycle state reported by the block-storage service for
// snapshots and volumes. Only the values this operator reacts to are named;
// anything else is treated as "still in progress".
type Status string

const (
	StatusCreating  Status = "creating"
	StatusAvailable Status = "available"
	StatusError     Status = "error"
)

// Terminal reports whether the status ends a poll loop.
func (s Status) Terminal() bool {
	return s == StatusAvailable || s == StatusError
}

// Snapshot is a client-side handle to a point-in-time copy of a volume.
// The authoritative state lives server-side; Status is whatever the last
// fetch observed.
type Snapshot struct {
	ID       string
	VolumeID string
	Name     string
	Size     int // GiB
	Status   Status
}

// Volume is a client-side handle to a block-storage volume.
type Volume struct {
	ID     string
	Name   string
	Size   int // GiB
	Status Status
}

// Image is a client-side handle to an image-service artifact.
type Image struct {
	ID        string
	Name      string
	SizeBytes int64
}

// Account summarizes an object-storage account.
type Account struct {
	Containers int64
	Objects    int64
	Bytes      int64
}

// Container summarizes an object-storage container.
type Container struct {
	Name    string
	Objects int64
	Bytes   int64
}
