// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Licensing information
const legal = `Rainbow is Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

The binary version of this program uses several open source libraries and components, which come with their own licensing terms:

| Library                                                                                      | License type                            | Usage    |
|----------------------------------------------------------------------------------------------|-----------------------------------------|----------|
| [github.com/creasty/defaults](https://github.com/creasty/defaults)                           | MIT License                             |          |
| [github.com/gin-gonic/gin](https://github.com/gin-gonic/gin)                                 | MIT License                             |          |
| [github.com/go-playground/validator](https://github.com/go-playground/validator)             | MIT License                             |          |
| [github.com/google/uuid](https://github.com/google/uuid)                                     | BSD 3-Clause                            |          |
| [github.com/jszwec/csvutil](https://github.com/jszwec/csvutil)                               | MIT License                             |          |
| [github.com/lucasb-eyer/go-colorful](https://github.com/lucasb-eyer/go-colorful)             | MIT License                             |          |
| [github.com/prometheus/client_golang](https://github.com/prometheus/client_golang)           | Apache 2.0 License                      |          |
| [github.com/rotisserie/eris](https://github.com/rotisserie/eris)                             | MIT License                             |          |
| [github.com/spf13/cobra](https://github.com/spf13/cobra)                                     | Apache 2.0 License                      |          |
| [github.com/spf13/viper](https://github.com/spf13/viper)                                     | MIT License                             |          |
| [github.com/valyala/fastrand](https://github.com/valyala/fastrand)                           | MIT License                             |          |
| [go.uber.org/zap](https://github.com/uber-go/zap)                                            | MIT License                             |          |
| [golang.org/x/sync](https://golang.org/x/sync)                                               | BSD 3-Clause                            |          |
| [gonum.org/v1/gonum](https://gonum.org/v1/gonum)                                             | BSD 3-Clause "New" or "Revised" License |          |
| [gopkg.in/yaml.v3](https://gopkg.in/yaml.v3)                                                 | MIT and Apache 2.0 License              |          |
| [modernc.org/sqlite](https://gitlab.com/cznic/sqlite)                                        | BSD 3-Clause                            |          |
| [github.com/mattn/go-isatty](https://github.com/mattn/go-isatty)                             | MIT License                             | indirect |
| [golang.org/x/sys](https://golang.org/x/sys)                                                 | BSD 3-Clause                            | indirect |
| [golang.org/x/text](https://golang.org/x/text)                                               | BSD 3-Clause                            | indirect |
| [google.golang.org/protobuf](https://google.golang.org/protobuf)                             | BSD 3-Clause                            | indirect |
`

var legalCmd = &cobra.Command{
	Use:   "legal",
	Short: "Print licensing information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), legal)
	},
}

func init() {
	rootCmd.AddCommand(legalCmd)
}
