// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import "fmt"

type Request struct {
	timeout int
	retries int
	dst     string
}

type Builder struct {
	timeout int
	retries int
	dst     string
}

func NewBuilder() Builder {
	return Builder{}
}

func (b Builder) WithTimeout(t int) Builder {
	b.timeout = t
	return b
}

func (b Builder) WithRetries(r int) Builder {
	b.retries = r
	return b
}

func (b Builder) WithDst(d string) Builder {
	b.dst = d
	return b
}

func (b Builder) Build() Request {
	return Request{timeout: b.timeout, retries: b.retries, dst: b.dst}
}

func complete() Request {
	b := NewBuilder().WithTimeout(1).WithRetries(2)
	return b.Build() // @Ok
}

func missingRetries() Request {
	b := NewBuilder().WithTimeout(1)
	return b.Build() // @Violation
}

func aliased() Request {
	b := NewBuilder().WithTimeout(1)
	c := b
	d := c.WithRetries(3)
	return d.Build() // @Ok
}

func branching(flag bool) Request {
	b := NewBuilder().WithTimeout(1)
	if flag {
		b = b.WithRetries(4)
	}
	return b.Build() // @Ok - the join keeps the steps of either branch
}

func makeBuilder() Builder {
	return NewBuilder().WithTimeout(5)
}

func caller() Request {
	b := makeBuilder()
	return b.Build() // @Violation
}

func completeCaller() Request {
	return makeBuilder().WithRetries(2).Build() // @Ok
}

func exclusive() Request {
	b := NewBuilder().WithTimeout(1).WithRetries(2).WithDst("remote")
	return b.Build() // @Violation
}

func describe[T ~string | ~[]byte](v T) string {
	return string(v)
}

func main() {
	fmt.Println(describe("requests:"))
	fmt.Println(complete())
	fmt.Println(missingRetries())
	fmt.Println(aliased())
	fmt.Println(branching(true))
	fmt.Println(caller())
	fmt.Println(completeCaller())
	fmt.Println(exclusive())
}
