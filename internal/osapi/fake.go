package osapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
)

// In-memory implementations for unit tests. They double as call-count spies:
// every mutating call and every dial is recorded so tests can assert on
// memoization and dry-run suppression.

// NotFoundError mimics the provider's 404 for objects and containers.
type NotFoundError struct{ Resource, Name string }

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }

// CreateVolumeCall records the arguments of a FakeBlockStorage.CreateVolume call.
type CreateVolumeCall struct {
	Size       int
	SnapshotID string
}

// UploadImageCall records the arguments of an UploadVolumeAsImage call.
type UploadImageCall struct {
	VolumeID        string
	ImageName       string
	ContainerFormat string
	DiskFormat      string
	Force           bool
}

// FakeBlockStorage scripts snapshot/volume status sequences: each Get consumes
// the next status, and the last one repeats once the script runs out. Errors
// in GetErrs are injected by 1-based call index, simulating transient fetch
// failures mid-poll.
type FakeBlockStorage struct {
	SnapshotStatuses []Status
	SnapshotGetErrs  map[int]error
	VolumeStatuses   []Status
	VolumeGetErrs    map[int]error

	SnapshotSize int // size given to created snapshots (default 10)

	CreatedSnapshots []*Snapshot
	CreatedVolumes   []CreateVolumeCall
	DeletedSnapshots []string
	DeletedVolumes   []string
	UploadCalls      []UploadImageCall

	snapshotGets int
	volumeGets   int
}

func NewFakeBlockStorage() *FakeBlockStorage {
	return &FakeBlockStorage{
		SnapshotStatuses: []Status{StatusAvailable},
		VolumeStatuses:   []Status{StatusAvailable},
		SnapshotSize:     10,
	}
}

// SnapshotGets returns how many times GetSnapshot was called.
func (f *FakeBlockStorage) SnapshotGets() int { return f.snapshotGets }

// VolumeGets returns how many times GetVolume was called.
func (f *FakeBlockStorage) VolumeGets() int { return f.volumeGets }

func (f *FakeBlockStorage) CreateSnapshot(_ context.Context, volumeID, name string, force bool) (*Snapshot, error) {
	if !force {
		return nil, fmt.Errorf("snapshot of in-use volume %s requires force", volumeID)
	}
	s := &Snapshot{
		ID:       fmt.Sprintf("snap-%d", len(f.CreatedSnapshots)+1),
		VolumeID: volumeID,
		Name:     name,
		Size:     f.SnapshotSize,
		Status:   StatusCreating,
	}
	f.CreatedSnapshots = append(f.CreatedSnapshots, s)
	return s, nil
}

func (f *FakeBlockStorage) GetSnapshot(_ context.Context, id string) (*Snapshot, error) {
	f.snapshotGets++
	if err := f.SnapshotGetErrs[f.snapshotGets]; err != nil {
		return nil, err
	}
	st := scriptAt(f.SnapshotStatuses, f.snapshotGets)
	if len(f.CreatedSnapshots) == 0 {
		return &Snapshot{ID: id, Status: st}, nil
	}
	last := f.CreatedSnapshots[len(f.CreatedSnapshots)-1]
	return &Snapshot{ID: id, VolumeID: last.VolumeID, Name: last.Name, Size: last.Size, Status: st}, nil
}

func (f *FakeBlockStorage) DeleteSnapshot(_ context.Context, id string) error {
	f.DeletedSnapshots = append(f.DeletedSnapshots, id)
	return nil
}

func (f *FakeBlockStorage) CreateVolume(_ context.Context, size int, snapshotID string) (*Volume, error) {
	f.CreatedVolumes = append(f.CreatedVolumes, CreateVolumeCall{Size: size, SnapshotID: snapshotID})
	return &Volume{
		ID:     fmt.Sprintf("vol-%d", len(f.CreatedVolumes)),
		Size:   size,
		Status: StatusCreating,
	}, nil
}

func (f *FakeBlockStorage) GetVolume(_ context.Context, id string) (*Volume, error) {
	f.volumeGets++
	if err := f.VolumeGetErrs[f.volumeGets]; err != nil {
		return nil, err
	}
	size := 0
	if len(f.CreatedVolumes) > 0 {
		size = f.CreatedVolumes[len(f.CreatedVolumes)-1].Size
	}
	return &Volume{ID: id, Size: size, Status: scriptAt(f.VolumeStatuses, f.volumeGets)}, nil
}

func (f *FakeBlockStorage) DeleteVolume(_ context.Context, id string) error {
	f.DeletedVolumes = append(f.DeletedVolumes, id)
	return nil
}

func (f *FakeBlockStorage) UploadVolumeAsImage(_ context.Context, volumeID, imageName, containerFormat, diskFormat string, force bool) (*Image, error) {
	f.UploadCalls = append(f.UploadCalls, UploadImageCall{
		VolumeID:        volumeID,
		ImageName:       imageName,
		ContainerFormat: containerFormat,
		DiskFormat:      diskFormat,
		Force:           force,
	})
	return &Image{ID: fmt.Sprintf("img-%d", len(f.UploadCalls)), Name: imageName}, nil
}

func scriptAt(script []Status, call int) Status {
	if len(script) == 0 {
		return StatusAvailable
	}
	if call > len(script) {
		return script[len(script)-1]
	}
	return script[call-1]
}

// FakeImageStorage serves image payloads from memory.
type FakeImageStorage struct {
	Payloads map[string][]byte
	Names    map[string]string
}

func NewFakeImageStorage() *FakeImageStorage {
	return &FakeImageStorage{Payloads: map[string][]byte{}, Names: map[string]string{}}
}

func (f *FakeImageStorage) GetImage(_ context.Context, id string) (*Image, error) {
	p, ok := f.Payloads[id]
	if !ok {
		return nil, &NotFoundError{Resource: "image", Name: id}
	}
	return &Image{ID: id, Name: f.Names[id], SizeBytes: int64(len(p))}, nil
}

func (f *FakeImageStorage) DownloadImage(_ context.Context, id string) (io.ReadCloser, int64, error) {
	p, ok := f.Payloads[id]
	if !ok {
		return nil, 0, &NotFoundError{Resource: "image", Name: id}
	}
	return io.NopCloser(bytes.NewReader(p)), int64(len(p)), nil
}

// FakeObjectStorage is an in-memory Swift. Mutating calls are counted so
// dry-run tests can assert nothing reached the store.
type FakeObjectStorage struct {
	Objects map[string]map[string][]byte // container -> name -> payload

	PutContainerCalls int
	PutObjectCalls    int
	DeleteObjectCalls int
}

func NewFakeObjectStorage() *FakeObjectStorage {
	return &FakeObjectStorage{Objects: map[string]map[string][]byte{}}
}

func (f *FakeObjectStorage) GetAccount(_ context.Context) (*Account, error) {
	acc := &Account{Containers: int64(len(f.Objects))}
	for _, c := range f.Objects {
		acc.Objects += int64(len(c))
		for _, p := range c {
			acc.Bytes += int64(len(p))
		}
	}
	return acc, nil
}

func (f *FakeObjectStorage) GetContainer(_ context.Context, name string) (*Container, error) {
	c, ok := f.Objects[name]
	if !ok {
		return nil, &NotFoundError{Resource: "container", Name: name}
	}
	out := &Container{Name: name, Objects: int64(len(c))}
	for _, p := range c {
		out.Bytes += int64(len(p))
	}
	return out, nil
}

func (f *FakeObjectStorage) GetObject(_ context.Context, container, name string) (io.ReadCloser, error) {
	p, ok := f.Objects[container][name]
	if !ok {
		return nil, &NotFoundError{Resource: "object", Name: container + "/" + name}
	}
	return io.NopCloser(bytes.NewReader(p)), nil
}

func (f *FakeObjectStorage) HeadObject(_ context.Context, container, name string) (map[string]string, error) {
	p, ok := f.Objects[container][name]
	if !ok {
		return nil, &NotFoundError{Resource: "object", Name: container + "/" + name}
	}
	return map[string]string{"Content-Length": fmt.Sprint(len(p))}, nil
}

func (f *FakeObjectStorage) PutContainer(_ context.Context, name string) error {
	f.PutContainerCalls++
	if _, ok := f.Objects[name]; !ok {
		f.Objects[name] = map[string][]byte{}
	}
	return nil
}

func (f *FakeObjectStorage) PutObject(_ context.Context, container, name string, content io.Reader) error {
	f.PutObjectCalls++
	p, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if _, ok := f.Objects[container]; !ok {
		f.Objects[container] = map[string][]byte{}
	}
	f.Objects[container][name] = p
	return nil
}

func (f *FakeObjectStorage) DeleteObject(_ context.Context, container, name string) error {
	f.DeleteObjectCalls++
	if _, ok := f.Objects[container][name]; !ok {
		return &NotFoundError{Resource: "object", Name: container + "/" + name}
	}
	delete(f.Objects[container], name)
	return nil
}

// ObjectNames returns the sorted object names in a container, for assertions.
func (f *FakeObjectStorage) ObjectNames(container string) []string {
	names := make([]string, 0, len(f.Objects[container]))
	for n := range f.Objects[container] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FakeCompute answers connectivity checks.
type FakeCompute struct {
	PingErr   error
	PingCalls int
}

func (f *FakeCompute) Ping(_ context.Context) error {
	f.PingCalls++
	return f.PingErr
}

// FakeFactory hands out the held fakes and counts dials per service, so tests
// can verify the manager authenticates each service at most once.
type FakeFactory struct {
	Block  *FakeBlockStorage
	Image  *FakeImageStorage
	Object *FakeObjectStorage
	Comp   *FakeCompute

	BlockErr, ImageErr, ObjectErr, ComputeErr error

	BlockDials, ImageDials, ObjectDials, ComputeDials int
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{
		Block:  NewFakeBlockStorage(),
		Image:  NewFakeImageStorage(),
		Object: NewFakeObjectStorage(),
		Comp:   &FakeCompute{},
	}
}

func (f *FakeFactory) BlockStorage(_ context.Context) (BlockStorage, error) {
	f.BlockDials++
	if f.BlockErr != nil {
		return nil, f.BlockErr
	}
	return f.Block, nil
}

func (f *FakeFactory) ImageStorage(_ context.Context) (ImageStorage, error) {
	f.ImageDials++
	if f.ImageErr != nil {
		return nil, f.ImageErr
	}
	return f.Image, nil
}

func (f *FakeFactory) ObjectStorage(_ context.Context) (ObjectStorage, error) {
	f.ObjectDials++
	if f.ObjectErr != nil {
		return nil, f.ObjectErr
	}
	return f.Object, nil
}

func (f *FakeFactory) Compute(_ context.Context) (Compute, error) {
	f.ComputeDials++
	if f.ComputeErr != nil {
		return nil, f.ComputeErr
	}
	return f.Comp, nil
}
