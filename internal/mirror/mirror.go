// Package mirror persists the last confirmed cart to disk so a new session can
// render it before the first remote load finishes.
// Records are stored as TOML under the configured mirror directory.
package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/five82/basket/internal/shop"
)

const (
	cartKey       = "cart"
	cartFile      = "cart.toml"
	recordVersion = 1
)

// Mirror reads and writes snapshot records in a directory.
type Mirror struct {
	dir string
	now func() time.Time
}

type cartRecord struct {
	Key     string       `toml:"key"`
	Version int          `toml:"version"`
	SavedAt time.Time    `toml:"saved_at"`
	UserID  string       `toml:"user_id"`
	Items   []lineRecord `toml:"items"`
}

type lineRecord struct {
	ProductID         string `toml:"product_id"`
	SellerID          string `toml:"seller_id,omitempty"`
	Name              string `toml:"name"`
	Price             string `toml:"price"`
	Quantity          int    `toml:"quantity"`
	AvailableQuantity int    `toml:"available_quantity,omitempty"`
	ImageURL          string `toml:"image_url,omitempty"`
}

// Open returns a mirror rooted at dir. The directory is created lazily on the
// first save.
func Open(dir string) (*Mirror, error) {
	resolved, err := expandPath(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve mirror dir")
	}
	return &Mirror{dir: resolved, now: time.Now}, nil
}

// Dir returns the resolved mirror directory.
func (m *Mirror) Dir() string {
	return m.dir
}

// SaveCart replaces the stored cart record. The write goes through a temp
// file and a rename so readers never observe a partial record.
func (m *Mirror) SaveCart(cart shop.Cart) error {
	rec := cartRecord{
		Key:     cartKey,
		Version: recordVersion,
		SavedAt: m.now().UTC().Truncate(time.Second),
		UserID:  cart.UserID,
		Items:   make([]lineRecord, 0, len(cart.Items)),
	}
	for _, it := range cart.Items {
		rec.Items = append(rec.Items, lineRecord{
			ProductID:         it.ProductID,
			SellerID:          it.SellerID,
			Name:              it.Name,
			Price:             it.Price.String(),
			Quantity:          it.Quantity,
			AvailableQuantity: it.AvailableQuantity,
			ImageURL:          it.ImageURL,
		})
	}

	bytes, err := toml.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal cart record")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return errors.Wrap(err, "create mirror dir")
	}

	tmp, err := os.CreateTemp(m.dir, cartFile+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp record")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write cart record")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close cart record")
	}
	if err := os.Rename(tmpName, filepath.Join(m.dir, cartFile)); err != nil {
		return errors.Wrap(err, "replace cart record")
	}
	return nil
}

// LoadCart returns the stored cart. ok is false when no record exists, or when
// the record cannot be used, in which case err says why.
func (m *Mirror) LoadCart() (cart shop.Cart, ok bool, err error) {
	bytes, err := os.ReadFile(filepath.Join(m.dir, cartFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return shop.Cart{}, false, nil
		}
		return shop.Cart{}, false, errors.Wrap(err, "read cart record")
	}

	var rec cartRecord
	if err := toml.Unmarshal(bytes, &rec); err != nil {
		return shop.Cart{}, false, errors.Wrap(err, "decode cart record")
	}
	if rec.Key != cartKey {
		return shop.Cart{}, false, errors.Errorf("unexpected record key %q", rec.Key)
	}
	if rec.Version != recordVersion {
		return shop.Cart{}, false, errors.Errorf("unsupported record version %d", rec.Version)
	}

	cart = shop.Cart{UserID: rec.UserID, Items: make([]shop.LineItem, 0, len(rec.Items))}
	for _, it := range rec.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return shop.Cart{}, false, errors.Wrapf(err, "parse price of %s", it.ProductID)
		}
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
			continue
		}
		cart.Items = append(cart.Items, shop.LineItem{
			ProductID:         it.ProductID,
			SellerID:          it.SellerID,
			Name:              it.Name,
			Price:             price,
			Quantity:          it.Quantity,
			AvailableQuantity: it.AvailableQuantity,
			ImageURL:          it.ImageURL,
		})
	}
	return cart, true, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
