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

package keygen

import (
	"io/ioutil"
	"path/filepath"

	"github.com/getamis/sirius/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adwise-fiu/ciphercraft/crypto/homo/dgk"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/paillier"
	"github.com/adwise-fiu/ciphercraft/crypto/keyio"
	"github.com/adwise-fiu/ciphercraft/example/config"
)

var Cmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the DGK and Paillier key pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		c, err := config.ReadConfigFile(viper.GetString("config"))
		if err != nil {
			log.Error("Failed to read config file", "err", err)
			return err
		}
		keyDir := viper.GetString("key-dir")

		logger := log.New("l", c.DGK.L, "t", c.DGK.T, "k", c.DGK.K)
		logger.Info("Generating DGK key pair")
		dgkKey, err := dgk.NewDGK(c.DGK.L, c.DGK.T, c.DGK.K)
		if err != nil {
			logger.Error("Failed to generate DGK key pair", "err", err)
			return err
		}
		dgkPub, err := keyio.MarshalDGKPublicKey(dgkKey.PublicKey)
		if err != nil {
			return err
		}
		dgkPriv, err := keyio.MarshalDGKPrivateKey(dgkKey)
		if err != nil {
			return err
		}
		if err := writeKeyPair(keyDir, "dgk", dgkPub, dgkPriv); err != nil {
			return err
		}

		logger = log.New("keySize", c.Paillier.KeySize, "fastVariant", c.Paillier.FastVariant)
		logger.Info("Generating Paillier key pair")
		newPaillier := paillier.NewPaillier
		if c.Paillier.FastVariant {
			newPaillier = paillier.NewFastPaillier
		}
		paillierKey, err := newPaillier(c.Paillier.KeySize)
		if err != nil {
			logger.Error("Failed to generate Paillier key pair", "err", err)
			return err
		}
		paillierPub, err := keyio.MarshalPaillierPublicKey(paillierKey.PublicKey)
		if err != nil {
			return err
		}
		paillierPriv, err := keyio.MarshalPaillierPrivateKey(paillierKey)
		if err != nil {
			return err
		}
		return writeKeyPair(keyDir, "paillier", paillierPub, paillierPriv)
	},
}

func init() {
	Cmd.Flags().String("key-dir", ".", "output directory for the PEM files")
}

func writeKeyPair(dir, name string, pubPem, privPem []byte) error {
	if err := ioutil.WriteFile(filepath.Join(dir, name+"-public.pem"), pubPem, 0644); err != nil {
		return err
	}
	return ioutil.WriteFile(filepath.Join(dir, name+"-private.pem"), privPem, 0600)
}
