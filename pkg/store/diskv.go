package store

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/item"
)

// Scope selects which slice of the inventory a consumer observes. An empty
// FridgeID means every fridge. Presence is carried for view configuration and
// is not applied by the store itself: queries always return both the need and
// have sides of a fridge.
type Scope struct {
	FridgeID string
	Presence item.Presence
}

// All reports whether the scope spans every fridge.
func (s Scope) All() bool {
	return s.FridgeID == ""
}

// Persistence defines the persistence contract for fridges and their items.
type Persistence interface {
	Items(ctx context.Context, scope Scope, force bool) ([]item.Item, error)
	UpsertItem(ctx context.Context, it item.Item) (item.Item, bool, error)
	DeleteItem(ctx context.Context, it item.Item, offerUndo bool) (bool, error)

	Fridges(ctx context.Context) ([]fridge.Fridge, error)
	Fridge(ctx context.Context, id string) (fridge.Fridge, error)
	UpsertFridge(ctx context.Context, f fridge.Fridge) (fridge.Fridge, bool, error)
	DeleteFridge(ctx context.Context, f fridge.Fridge, offerUndo bool) (bool, error)
	DeleteAllFridges(ctx context.Context) error

	Watch(ctx context.Context, scope Scope) (<-chan bus.Event, error)
}

// Load creates a Persistence backed by diskv using the provided config.
func Load(cfg Config) (Persistence, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	basePath := cfg.BasePath()
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      1024 * 1024, // 1MB
	}), basePath: basePath}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
}

var errNotFound = errors.New("store: not found")

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (p *persistence) read(key string, force bool) (item.Item, error) {
	var data []byte
	var err error
	if force {
		// Bypass the diskv read cache so a forced refetch observes writes made
		// by other processes.
		var rc io.ReadCloser
		rc, err = p.d.ReadStream(key, true)
		if err == nil {
			data, err = io.ReadAll(rc)
			_ = rc.Close()
		}
	} else {
		data, err = p.d.Read(key)
	}
	if err != nil {
		return item.Item{}, err
	}

	var it item.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return item.Item{}, err
	}
	pk := keyToPathTransform(key)
	it.ID = pk.FileName
	if len(pk.Path) > 0 && it.FridgeID == "" {
		it.FridgeID = fromPathSegment(pk.Path[0])
	}
	return it, nil
}

func (p *persistence) Items(ctx context.Context, scope Scope, force bool) ([]item.Item, error) {
	all := make([]item.Item, 0)

	var keys <-chan string
	if scope.All() {
		keys = p.d.Keys(ctx.Done())
	} else {
		keys = p.d.KeysPrefix(toPathSegment(scope.FridgeID)+"-", ctx.Done())
	}

	for key := range keys {
		if !itemRecordKey(key) {
			continue
		}
		it, err := p.read(key, force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: %s: %s\n", key, err)
			continue
		}
		all = append(all, it)
	}
	sortItems(all)
	return all, nil
}

func (p *persistence) UpsertItem(ctx context.Context, it item.Item) (item.Item, bool, error) {
	if it.FridgeID == "" {
		return it, false, errors.New("store: item fridge id required")
	}
	if it.ID == "" {
		it.ID = newID(it)
	}
	key := itemKey(it)
	wasInsert := !p.d.Has(key)

	data, err := json.Marshal(&it)
	if err != nil {
		return it, false, fmt.Errorf("store: marshal item: %w", err)
	}
	if err := p.d.Write(key, data); err != nil {
		return it, false, fmt.Errorf("store: write item: %w", err)
	}
	return it, wasInsert, nil
}

func (p *persistence) DeleteItem(ctx context.Context, it item.Item, offerUndo bool) (bool, error) {
	if it.ID == "" || it.FridgeID == "" {
		return false, errors.New("store: item id and fridge id required")
	}
	key := itemKey(it)
	if !p.d.Has(key) {
		return false, nil
	}
	if err := p.d.Erase(key); err != nil {
		return false, fmt.Errorf("store: erase item: %w", err)
	}
	return true, nil
}

func (p *persistence) Fridges(ctx context.Context) ([]fridge.Fridge, error) {
	index, err := p.loadFridgeIndex()
	if err != nil {
		return nil, err
	}
	list := make([]fridge.Fridge, 0, len(index))
	for _, f := range index {
		list = append(list, f)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

func (p *persistence) Fridge(ctx context.Context, id string) (fridge.Fridge, error) {
	index, err := p.loadFridgeIndex()
	if err != nil {
		return fridge.Fridge{}, err
	}
	if f, ok := index[id]; ok {
		return f, nil
	}
	return fridge.Fridge{}, fmt.Errorf("store: fridge %q: %w", id, errNotFound)
}

func (p *persistence) UpsertFridge(ctx context.Context, f fridge.Fridge) (fridge.Fridge, bool, error) {
	if !f.Real() {
		return f, false, errors.New("store: fridge name required")
	}
	if f.ID == "" {
		f.ID = newID(f)
	}
	index, err := p.loadFridgeIndex()
	if err != nil {
		return f, false, err
	}
	_, exists := index[f.ID]
	index[f.ID] = f
	if err := p.saveFridgeIndex(index); err != nil {
		return f, false, err
	}
	if err := os.MkdirAll(filepath.Join(p.basePath, toPathSegment(f.ID)), 0o755); err != nil {
		return f, false, fmt.Errorf("store: ensure fridge directory: %w", err)
	}
	return f, !exists, nil
}

func (p *persistence) DeleteFridge(ctx context.Context, f fridge.Fridge, offerUndo bool) (bool, error) {
	if f.ID == "" {
		return false, errors.New("store: fridge id required")
	}
	index, err := p.loadFridgeIndex()
	if err != nil {
		return false, err
	}
	_, exists := index[f.ID]
	delete(index, f.ID)
	if err := p.saveFridgeIndex(index); err != nil {
		return false, err
	}
	for key := range p.d.KeysPrefix(toPathSegment(f.ID)+"-", ctx.Done()) {
		if err := p.d.Erase(key); err != nil {
			fmt.Fprintf(os.Stderr, "store: erase %s: %v\n", key, err)
		}
	}
	_ = os.RemoveAll(filepath.Join(p.basePath, toPathSegment(f.ID)))
	return exists, nil
}

func (p *persistence) DeleteAllFridges(ctx context.Context) error {
	if err := p.d.EraseAll(); err != nil {
		return fmt.Errorf("store: erase all: %w", err)
	}
	if err := p.saveFridgeIndex(map[string]fridge.Fridge{}); err != nil {
		return err
	}
	return nil
}

const fridgeIndexFile = ".fridges.json"

func (p *persistence) fridgeIndexPath() string {
	return filepath.Join(p.basePath, fridgeIndexFile)
}

func (p *persistence) loadFridgeIndex() (map[string]fridge.Fridge, error) {
	if p.basePath == "" {
		return nil, errors.New("store: base path unknown")
	}
	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.fridgeIndexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]fridge.Fridge), nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return make(map[string]fridge.Fridge), nil
	}
	var list []fridge.Fridge
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("store: decode fridge index: %w", err)
	}
	index := make(map[string]fridge.Fridge, len(list))
	for _, f := range list {
		if f.ID == "" {
			continue
		}
		index[f.ID] = f
	}
	return index, nil
}

func (p *persistence) saveFridgeIndex(index map[string]fridge.Fridge) error {
	if p.basePath == "" {
		return errors.New("store: base path unknown")
	}
	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return err
	}
	list := make([]fridge.Fridge, 0, len(index))
	for _, f := range index {
		list = append(list, f)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	path := p.fridgeIndexPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func sortItems(items []item.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		lt := items[i].Created.Time
		rt := items[j].Created.Time
		switch {
		case lt.IsZero() && rt.IsZero():
			return items[i].ID < items[j].ID
		case lt.IsZero():
			return false
		case rt.IsZero():
			return true
		default:
			if lt.Equal(rt) {
				return items[i].ID < items[j].ID
			}
			return lt.Before(rt)
		}
	})
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

// itemKey makes `fridge-id`.
func itemKey(it item.Item) string {
	return fmt.Sprintf("%s-%s", toPathSegment(it.FridgeID), it.ID)
}

// itemRecordKey reports whether a diskv key names an item record. The fridge
// index and in-progress temp files live inside the diskv tree and must not be
// decoded as items.
func itemRecordKey(key string) bool {
	pk := keyToPathTransform(key)
	if pk.FileName == fridgeIndexFile || strings.HasSuffix(pk.FileName, ".tmp") {
		return false
	}
	return len(pk.Path) > 0 && pk.Path[0] != ""
}

func newID(v any) string {
	b, _ := json.Marshal(v)
	id := md5.Sum(b)
	return fmt.Sprintf("%x", id[:8])
}

func toPathSegment(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func fromPathSegment(s string) string {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(decoded)
}
