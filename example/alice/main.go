// Copyright © 2022 ADWISE Lab, Florida International University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package alice

import (
	"fmt"
	"io/ioutil"
	"math/big"
	"net"
	"path/filepath"

	"github.com/getamis/sirius/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adwise-fiu/ciphercraft/crypto/compare"
	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/keyio"
	"github.com/adwise-fiu/ciphercraft/example/config"
)

var Cmd = &cobra.Command{
	Use:   "alice",
	Short: "Dial bob and drive a demo tour of the sub-protocols",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		c, err := config.ReadConfigFile(viper.GetString("config"))
		if err != nil {
			log.Error("Failed to read config file", "err", err)
			return err
		}
		sessionCfg, err := c.SessionConfig()
		if err != nil {
			log.Error("Failed to map session config", "err", err)
			return err
		}
		keyDir := viper.GetString("key-dir")

		dgkPem, err := ioutil.ReadFile(filepath.Join(keyDir, "dgk-public.pem"))
		if err != nil {
			return err
		}
		dgkPub, err := keyio.ParseDGKPublicKey(dgkPem)
		if err != nil {
			log.Error("Failed to parse DGK public key", "err", err)
			return err
		}
		paillierPem, err := ioutil.ReadFile(filepath.Join(keyDir, "paillier-public.pem"))
		if err != nil {
			return err
		}
		paillierPub, err := keyio.ParsePaillierPublicKey(paillierPem)
		if err != nil {
			log.Error("Failed to parse Paillier public key", "err", err)
			return err
		}

		conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", viper.GetString("host"), c.Port))
		if err != nil {
			return err
		}
		defer conn.Close()

		a, err := compare.NewAlice(sessionCfg, conn, paillierPub, dgkPub)
		if err != nil {
			return err
		}
		var pub homo.Pubkey = paillierPub
		if sessionCfg.Mode == compare.ModeDGK {
			pub = dgkPub
		}
		return tour(a, pub)
	},
}

func init() {
	Cmd.Flags().String("key-dir", ".", "directory holding the PEM files")
	Cmd.Flags().String("host", "localhost", "bob's address")
}

// tour drives one of each arithmetic sub-protocol and logs the results.
func tour(a *compare.Alice, pub homo.Pubkey) error {
	encrypt := func(v int64) (*big.Int, error) {
		return pub.Encrypt(big.NewInt(v))
	}

	c6, err := encrypt(6)
	if err != nil {
		return err
	}
	c7, err := encrypt(7)
	if err != nil {
		return err
	}
	product, err := a.Multiply(c6, c7)
	if err != nil {
		return err
	}
	log.Info("Outsourced 6*7", "ciphertext bits", product.BitLen())

	c100, err := encrypt(100)
	if err != nil {
		return err
	}
	quotient, err := a.Divide(c100, big.NewInt(25))
	if err != nil {
		return err
	}
	log.Info("Outsourced 100/25", "ciphertext bits", quotient.BitLen())

	geq, err := a.Compare(c100, c7)
	if err != nil {
		return err
	}
	log.Info("Compared 100 >= 7", "result", geq)

	values := []int64{9, 3, 7, 1, 6, 4}
	cts := make([]*big.Int, len(values))
	for i, v := range values {
		if cts[i], err = encrypt(v); err != nil {
			return err
		}
	}
	if _, err = a.GetKValues(cts, 3, true); err != nil {
		return err
	}
	log.Info("Selected the 3 minima", "input", values)

	equal, err := a.EncryptedEquals(c6, c7)
	if err != nil {
		return err
	}
	log.Info("Tested Enc(6) == Enc(7)", "result", equal)

	same, err := a.PrivateEquals(big.NewInt(50))
	if err != nil {
		return err
	}
	log.Info("Tested private equality against bob's secret", "mine", 50, "result", same)
	return nil
}
