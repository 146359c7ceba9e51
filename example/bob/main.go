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

package bob

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
	"github.com/adwise-fiu/ciphercraft/crypto/keyio"
	"github.com/adwise-fiu/ciphercraft/example/config"
)

var Cmd = &cobra.Command{
	Use:   "bob",
	Short: "Listen for one Alice session and serve the comparison sub-protocols",
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

		dgkPem, err := ioutil.ReadFile(filepath.Join(keyDir, "dgk-private.pem"))
		if err != nil {
			return err
		}
		dgkKey, err := keyio.ParseDGKPrivateKey(dgkPem)
		if err != nil {
			log.Error("Failed to parse DGK private key", "err", err)
			return err
		}
		paillierPem, err := ioutil.ReadFile(filepath.Join(keyDir, "paillier-private.pem"))
		if err != nil {
			return err
		}
		paillierKey, err := keyio.ParsePaillierPrivateKey(paillierPem)
		if err != nil {
			log.Error("Failed to parse Paillier private key", "err", err)
			return err
		}

		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Port))
		if err != nil {
			return err
		}
		defer listener.Close()
		logger := log.New("port", c.Port)
		logger.Info("Waiting for alice")
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		defer conn.Close()

		b, err := compare.NewBob(sessionCfg, conn, paillierKey, dgkKey)
		if err != nil {
			return err
		}
		b.SetSecret(big.NewInt(viper.GetInt64("secret")))
		logger.Info("Session started")
		if err := b.Serve(); err != nil {
			logger.Error("Session failed", "err", err)
			return err
		}
		logger.Info("Session finished")
		return nil
	},
}

func init() {
	Cmd.Flags().String("key-dir", ".", "directory holding the PEM files")
	Cmd.Flags().Int64("secret", 50, "plaintext input for protocol 1 and private equality")
}
