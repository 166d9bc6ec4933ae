// Credential decryption. The credentials block may carry Fernet-encrypted
// values; decryption is applied only to the struct fields the schema marks
// with the `encrypted:"true"` tag, never to arbitrary nested values.
package config

import (
	"fmt"
	"reflect"

	"github.com/fernet/fernet-go"
)

// DecryptDB decrypts the tagged fields of the DB credentials block in place
// using the given base64 Fernet key. It is a no-op when the block is not
// marked encrypted.
func DecryptDB(db *DB, key string) error {
	if !db.Encrypted {
		return nil
	}
	if key == "" {
		return fmt.Errorf("config: db credentials are encrypted but no key was provided")
	}
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return fmt.Errorf("config: decode fernet key: %w", err)
	}
	if err := decryptTagged(reflect.ValueOf(db).Elem(), k); err != nil {
		return err
	}
	db.Encrypted = false
	return nil
}

// decryptTagged walks the struct's declared fields and decrypts every string
// field tagged encrypted:"true".
func decryptTagged(v reflect.Value, k *fernet.Key) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("encrypted") != "true" {
			continue
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("config: encrypted field %s is not a string", f.Name)
		}
		tok := v.Field(i).String()
		if tok == "" {
			continue
		}
		// TTL 0 disables token expiry; credentials are rotated out of band.
		msg := fernet.VerifyAndDecrypt([]byte(tok), 0, []*fernet.Key{k})
		if msg == nil {
			return fmt.Errorf("config: field %s: fernet token invalid", f.Name)
		}
		v.Field(i).SetString(string(msg))
	}
	return nil
}
