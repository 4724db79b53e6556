package sfuworker

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/imdario/mergo"
	uuid "github.com/satori/go.uuid"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

type ptrTransformers struct{}

// overwrites pointer type
func (ptrTransformers) Transformer(tp reflect.Type) func(dst, src reflect.Value) error {
	if tp.Kind() == reflect.Ptr {
		return func(dst, src reflect.Value) error {
			if !src.IsNil() {
				if dst.CanSet() {
					dst.Set(src)
				} else {
					dst = src
				}
			}
			return nil
		}
	}
	return nil
}

func generateRandomNumber() uint32 {
	return uint32(rand.Int63n(900000000)) + 100000000
}

func clone(from, to interface{}) (err error) {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}

func override(dst, src interface{}) error {
	return mergo.Merge(dst, src,
		mergo.WithOverride,
		mergo.WithTypeCheck,
		mergo.WithTransformers(ptrTransformers{}),
	)
}

// newUuid mints a fresh object id for locally-created (Go-API, rather
// than control-plane-addressed) routers/transports/producers/etc.
func newUuid() string {
	return uuid.NewV4().String()
}

func syncMapLen(m *sync.Map) (len int) {
	m.Range(func(key, val interface{}) bool {
		len++
		return true
	})
	return
}
