package cache

import "github.com/vmihailenco/msgpack/v5"

// timeNormalizer is implemented by cached values whose timestamps must come
// back in UTC; msgpack restores time.Time in the local zone.
type timeNormalizer interface {
	NormalizeTimes()
}

func encode(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func decode(payload []byte, dest any) error {
	if err := msgpack.Unmarshal(payload, dest); err != nil {
		return err
	}
	if n, ok := dest.(timeNormalizer); ok {
		n.NormalizeTimes()
	}
	return nil
}
