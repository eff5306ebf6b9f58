package reflector

import (
	"reflect"
	"sync"
	"testing"
)

type testStruct struct {
	Name string
}

type anotherStruct struct {
	Value int
}

func TestTypeInfoOf(t *testing.T) {
	ts := testStruct{Name: "test"}
	ti := TypeInfoOf(ts)

	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name: %s", ti.Name)
	}
	if ti.Type.Name() != "testStruct" {
		t.Errorf("unexpected Type.Name(): %s", ti.Type.Name())
	}
}

func TestTypeInfoOf_Pointer(t *testing.T) {
	ts := &testStruct{Name: "test"}
	ti := TypeInfoOf(ts)

	// Should unwrap pointer and return element type
	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name for pointer: %s", ti.Name)
	}
	if ti.Type.Kind() == reflect.Pointer {
		t.Error("Type should be unwrapped from pointer")
	}
}

func TestTypeInfoFor(t *testing.T) {
	ti := TypeInfoFor[testStruct]()

	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name: %s", ti.Name)
	}
	if ti.Type.Name() != "testStruct" {
		t.Errorf("unexpected Type.Name(): %s", ti.Type.Name())
	}
}

func TestTypeInfoFor_Pointer(t *testing.T) {
	ti := TypeInfoFor[*testStruct]()

	// Should unwrap pointer type parameter
	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name for pointer type: %s", ti.Name)
	}
}

func TestTypeInfoForType(t *testing.T) {
	rt := reflect.TypeOf((*testStruct)(nil)).Elem()
	ti := TypeInfoForType(rt)

	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name: %s", ti.Name)
	}
	if ti.Type != rt {
		t.Error("Type should match input reflect.Type")
	}
}

func TestTypeInfoForType_Pointer(t *testing.T) {
	rt := reflect.TypeOf((**testStruct)(nil)).Elem()
	ti := TypeInfoForType(rt)

	// Should unwrap pointer
	if ti.Name != "github.com/wavepool/actorcpu/core/reflector.testStruct" {
		t.Errorf("unexpected Name for pointer type: %s", ti.Name)
	}
	if ti.Type.Kind() == reflect.Pointer {
		t.Error("Type should be unwrapped from pointer")
	}
}

func TestTypeInfoForType_Nil(t *testing.T) {
	ti := TypeInfoForType(nil)

	if ti.Name != "" {
		t.Errorf("expected empty Name for nil type, got: %s", ti.Name)
	}
	if ti.Type != nil {
		t.Error("expected nil Type for nil input")
	}
}

func TestConcurrentAccess(t *testing.T) {
	const goroutines = 100
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range_i := 0; range_i < goroutines; range_i++ {
		go func() {
			defer wg.Done()
			for range_i := 0; range_i < iterations; range_i++ {
				_ = TypeInfoOf(testStruct{})
				_ = TypeInfoFor[anotherStruct]()
				_ = TypeInfoForType(reflect.TypeOf((*string)(nil)).Elem())
			}
		}()
	}

	wg.Wait()
}

func TestCacheHit(t *testing.T) {
	// Clear cache for test isolation
	muCache.Lock()
	cache = make(map[reflect.Type]TypeInfo)
	muCache.Unlock()

	// First call should populate cache
	ti1 := TypeInfoOf(testStruct{})

	// Second call should return cached value
	ti2 := TypeInfoOf(testStruct{})

	if ti1.Name != ti2.Name {
		t.Error("cached result should match original")
	}
	if ti1.Type != ti2.Type {
		t.Error("cached Type should match original")
	}

	// Verify cache has entry
	muCache.RLock()
	_, ok := cache[reflect.TypeOf((*testStruct)(nil)).Elem()]
	muCache.RUnlock()

	if !ok {
		t.Error("expected cache to contain testStruct type")
	}
}

func TestCacheSizeLimit(t *testing.T) {
	// Fill the cache to its limit with distinct array types; the next miss
	// must clear it before storing the new entry.
	muCache.Lock()
	cache = make(map[reflect.Type]TypeInfo)
	elem := reflect.TypeOf(0)
	for i := 0; i < maxCacheSize; i++ {
		at := reflect.ArrayOf(i, elem)
		cache[at] = TypeInfo{Type: at}
	}
	muCache.Unlock()

	_ = TypeInfoOf(testStruct{})

	muCache.RLock()
	size := len(cache)
	muCache.RUnlock()

	if size != 1 {
		t.Errorf("expected cache to be cleared at the limit, got %d entries", size)
	}
}
