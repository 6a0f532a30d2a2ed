package snapshot

import "fmt"

// cursor is a forward-only reader over a blob, returning ErrCorrupt
// instead of panicking on a short read. Every decoder in this package
// reads through one so a truncated or hand-edited blob fails the same
// way regardless of which field ran out first.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) need(n int) error {
	if len(c.b)-c.pos < n {
		return fmt.Errorf("%w: unexpected end of blob at offset %d, need %d more bytes", ErrCorrupt, c.pos, n)
	}
	return nil
}

func (c *cursor) byte() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.b[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) flag() (bool, error) {
	v, err := c.byte()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := readU32(c.b[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := readU64(c.b[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) optionalID() (present bool, id uint32, err error) {
	present, err = c.flag()
	if err != nil {
		return false, 0, err
	}
	if !present {
		return false, 0, nil
	}
	id, err = c.u32()
	return present, id, err
}
